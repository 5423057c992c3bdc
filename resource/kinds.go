package resource

// FileProps backs add_file.
type FileProps struct {
	Path    Name
	Content []byte
	Mode    string // "" means preserve existing mode
	Owner   string
	Group   string
	Backup  int
	Action  string // create, create_if_missing, delete, touch
}

// DirectoryProps backs add_directory.
type DirectoryProps struct {
	Path      Name
	Mode      string
	Owner     string
	Group     string
	Recursive bool
	Action    string // create, delete
}

// LinkProps backs add_link.
type LinkProps struct {
	Path   Name
	Target string
	Owner  string
	Group  string
	Action string // create, delete
}

// RemoteFileProps backs add_remote_file.
type RemoteFileProps struct {
	Path            Name
	SourceURL       string
	Mode            string
	Owner           string
	Group           string
	Checksum        string
	Backup          int
	Headers         map[string]string
	UseETag         bool
	UseLastModified bool
	ForceUnlink     bool
	Action          string // create, create_if_missing, delete, touch

	RemoteUser     string
	RemotePassword string
	RemoteDomain   string

	SSHPrivateKey               string
	SSHPublicKey                string
	SSHKnownHosts               string
	EnableStrictHostKeyChecking bool

	AWSAccessKey string
	AWSSecretKey string
	AWSRegion    string
	AWSEndpoint  string
}

// ExecuteProps backs add_execute.
type ExecuteProps struct {
	Command         string
	Cwd             string
	User            string
	Group           string
	EnvironmentPairs []string
	LiveStream      bool
	Creates         string
	Action          string // run, nothing
}

// TemplateVariable is one entry of add_template's variables_tagged sequence.
type TemplateVariable struct {
	Name    string
	Literal string
	Type    string // string, integer, float, boolean, nil, array
}

// TemplateProps backs add_template.
type TemplateProps struct {
	Path      Name
	Source    string
	Mode      string
	Owner     string
	Group     string
	Variables []TemplateVariable
	Action    string // create, create_if_missing, delete
}

// GitProps backs add_git.
type GitProps struct {
	Repository                  string
	Destination                 Name
	Revision                     string
	CheckoutBranch               string
	Remote                       string
	Depth                        int // 0 means unlimited
	EnableCheckout               bool
	EnableSubmodules             bool
	SSHKey                       string
	EnableStrictHostKeyChecking  bool
	User                         string
	Group                        string
	Action                       string // sync, checkout
}

// PackageProps backs add_package (and apt_package/homebrew_package aliases).
type PackageProps struct {
	Names    []string
	Version  string
	Options  []string
	Provider string // "" lets the driver dispatch by platform; "apt", "homebrew", "docker" override
	Action   string // install, remove, upgrade, nothing
}

// SystemdUnitProps backs add_systemd_unit. Actions is an ordered sequence,
// the one field in the model that is a set rather than a scalar.
type SystemdUnitProps struct {
	UnitName string
	Content  string
	Actions  []string // create, delete, enable, disable, start, stop, restart, reload
	Verify   bool
}

// RubyBlockProps backs add_ruby_block.
type RubyBlockProps struct {
	Callable         Callable
	EnvironmentPairs []string
	Action           string // run, nothing
}

// SourceEncoding is the encoding of an aws_kms source/target payload.
type SourceEncoding string

const (
	EncodingBinary SourceEncoding = "binary"
	EncodingBase64 SourceEncoding = "base64"
)

// AWSKMSProps backs add_aws_kms.
type AWSKMSProps struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	KeyID           string
	Algorithm       string
	ParsedSource    []byte // already resolved by the source-URI grammar
	SourceEncoding  SourceEncoding
	TargetEncoding  SourceEncoding
	Path            Name
	Mode            string
	Owner           string
	Group           string
	Action          string // encrypt, decrypt
}
