package script

import (
	"github.com/creasty/defaults"

	"github.com/ratazzi/hola/resource"
)

// Recipe is the Go-native stand-in for a loaded script: it owns one
// Registry and one NativeInterpreter, and exposes one top-level function
// per resource kind (File, Directory, Git, ...), each taking an identifier
// and a builder block — the same two-argument shape every
// `KIND(identifier) { block }` recipe function takes, minus the embedded
// language's syntax sugar.
type Recipe struct {
	Registry    *Registry
	Interpreter *NativeInterpreter
}

// NewRecipe starts a fresh load phase: a new ResourceList bound to a fresh
// NativeInterpreter.
func NewRecipe() *Recipe {
	interp := NewNativeInterpreter()
	return &Recipe{Registry: NewRegistry(interp), Interpreter: interp}
}

// commonBuilder collects the guard/notification/subscription setter calls
// shared by every resource kind.
type commonBuilder struct {
	recipe *Recipe
	args   CommonArgs
}

func newCommonBuilder(recipe *Recipe) commonBuilder {
	return commonBuilder{recipe: recipe}
}

// OnlyIf sets a shell-command guard.
func (b *commonBuilder) OnlyIf(cmd string) { b.args.OnlyIf = resource.Guard{Command: cmd} }

// OnlyIfBlock sets a scripted-callable guard.
func (b *commonBuilder) OnlyIfBlock(fn GuardFunc) {
	b.args.OnlyIf = resource.Guard{Callable: b.recipe.Interpreter.Guard(fn)}
}

// NotIf sets a shell-command inverse guard.
func (b *commonBuilder) NotIf(cmd string) { b.args.NotIf = resource.Guard{Command: cmd} }

// NotIfBlock sets a scripted-callable inverse guard.
func (b *commonBuilder) NotIfBlock(fn GuardFunc) {
	b.args.NotIf = resource.Guard{Callable: b.recipe.Interpreter.Guard(fn)}
}

// IgnoreFailure marks a driver failure as non-fatal.
func (b *commonBuilder) IgnoreFailure(v bool) { b.args.IgnoreFailure = v }

// Notifies records `notifies(action, target, timing)`.
func (b *commonBuilder) Notifies(action, target string, timing resource.Timing) {
	b.args.Notifications = append(b.args.Notifications, resource.Notification{
		Target: resource.Name(target), Action: action, Timing: timing,
	})
}

// Subscribes records `subscribes(action, source, timing)`.
func (b *commonBuilder) Subscribes(action, source string, timing resource.Timing) {
	b.args.Subscriptions = append(b.args.Subscriptions, resource.Subscription{
		Source: resource.Name(source), Action: action, Timing: timing,
	})
}

// FileBuilder collects add_file's builder-method mutations.
type FileBuilder struct {
	commonBuilder
	props resource.FileProps
}

// File registers a file resource, with action defaulting to create before
// the block runs.
func (rc *Recipe) File(path string, block func(*FileBuilder)) (*resource.Record, error) {
	b := &FileBuilder{commonBuilder: newCommonBuilder(rc), props: resource.FileProps{Path: resource.Name(path), Action: "create"}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddFile(b.props, b.args)
}

func (b *FileBuilder) Content(s string) *FileBuilder { b.props.Content = []byte(s); return b }
func (b *FileBuilder) Mode(m string) *FileBuilder     { b.props.Mode = m; return b }
func (b *FileBuilder) Owner(o string) *FileBuilder    { b.props.Owner = o; return b }
func (b *FileBuilder) Group(g string) *FileBuilder    { b.props.Group = g; return b }
func (b *FileBuilder) Backup(n int) *FileBuilder      { b.props.Backup = n; return b }
func (b *FileBuilder) Action(a string) *FileBuilder   { b.props.Action = a; return b }

// DirectoryBuilder collects add_directory's builder-method mutations.
type DirectoryBuilder struct {
	commonBuilder
	props resource.DirectoryProps
}

func (rc *Recipe) Directory(path string, block func(*DirectoryBuilder)) (*resource.Record, error) {
	b := &DirectoryBuilder{commonBuilder: newCommonBuilder(rc), props: resource.DirectoryProps{Path: resource.Name(path), Action: "create"}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddDirectory(b.props, b.args)
}

func (b *DirectoryBuilder) Mode(m string) *DirectoryBuilder      { b.props.Mode = m; return b }
func (b *DirectoryBuilder) Owner(o string) *DirectoryBuilder     { b.props.Owner = o; return b }
func (b *DirectoryBuilder) Group(g string) *DirectoryBuilder     { b.props.Group = g; return b }
func (b *DirectoryBuilder) Recursive(v bool) *DirectoryBuilder   { b.props.Recursive = v; return b }
func (b *DirectoryBuilder) Action(a string) *DirectoryBuilder    { b.props.Action = a; return b }

// LinkBuilder collects add_link's builder-method mutations.
type LinkBuilder struct {
	commonBuilder
	props resource.LinkProps
}

func (rc *Recipe) Link(path string, block func(*LinkBuilder)) (*resource.Record, error) {
	b := &LinkBuilder{commonBuilder: newCommonBuilder(rc), props: resource.LinkProps{Path: resource.Name(path), Action: "create"}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddLink(b.props, b.args)
}

func (b *LinkBuilder) Target(t string) *LinkBuilder { b.props.Target = t; return b }
func (b *LinkBuilder) Owner(o string) *LinkBuilder  { b.props.Owner = o; return b }
func (b *LinkBuilder) Group(g string) *LinkBuilder  { b.props.Group = g; return b }
func (b *LinkBuilder) Action(a string) *LinkBuilder { b.props.Action = a; return b }

// RemoteFileBuilder collects add_remote_file's builder-method mutations.
type RemoteFileBuilder struct {
	commonBuilder
	props resource.RemoteFileProps
}

func (rc *Recipe) RemoteFile(path string, block func(*RemoteFileBuilder)) (*resource.Record, error) {
	props := resource.RemoteFileProps{Path: resource.Name(path), Action: "create"}
	_ = defaults.Set(&props) // RemoteFileProps has no `default` tags; use_etag/use_last_modified are set below
	props.UseETag = true
	props.UseLastModified = true
	b := &RemoteFileBuilder{commonBuilder: newCommonBuilder(rc), props: props}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddRemoteFile(b.props, b.args)
}

func (b *RemoteFileBuilder) Source(url string) *RemoteFileBuilder      { b.props.SourceURL = url; return b }
func (b *RemoteFileBuilder) Mode(m string) *RemoteFileBuilder          { b.props.Mode = m; return b }
func (b *RemoteFileBuilder) Owner(o string) *RemoteFileBuilder         { b.props.Owner = o; return b }
func (b *RemoteFileBuilder) Group(g string) *RemoteFileBuilder         { b.props.Group = g; return b }
func (b *RemoteFileBuilder) Checksum(c string) *RemoteFileBuilder      { b.props.Checksum = c; return b }
func (b *RemoteFileBuilder) Backup(n int) *RemoteFileBuilder           { b.props.Backup = n; return b }
func (b *RemoteFileBuilder) Headers(h map[string]string) *RemoteFileBuilder {
	b.props.Headers = h
	return b
}
func (b *RemoteFileBuilder) UseETag(v bool) *RemoteFileBuilder         { b.props.UseETag = v; return b }
func (b *RemoteFileBuilder) UseLastModified(v bool) *RemoteFileBuilder { b.props.UseLastModified = v; return b }
func (b *RemoteFileBuilder) ForceUnlink(v bool) *RemoteFileBuilder     { b.props.ForceUnlink = v; return b }
func (b *RemoteFileBuilder) Action(a string) *RemoteFileBuilder        { b.props.Action = a; return b }
func (b *RemoteFileBuilder) RemoteAuth(user, password, domain string) *RemoteFileBuilder {
	b.props.RemoteUser, b.props.RemotePassword, b.props.RemoteDomain = user, password, domain
	return b
}
func (b *RemoteFileBuilder) SSH(privateKey, publicKey, knownHosts string, strict bool) *RemoteFileBuilder {
	b.props.SSHPrivateKey, b.props.SSHPublicKey, b.props.SSHKnownHosts = privateKey, publicKey, knownHosts
	b.props.EnableStrictHostKeyChecking = strict
	return b
}
func (b *RemoteFileBuilder) AWS(accessKey, secretKey, region, endpoint string) *RemoteFileBuilder {
	b.props.AWSAccessKey, b.props.AWSSecretKey, b.props.AWSRegion, b.props.AWSEndpoint = accessKey, secretKey, region, endpoint
	return b
}

// ExecuteBuilder collects add_execute's builder-method mutations.
type ExecuteBuilder struct {
	commonBuilder
	props resource.ExecuteProps
}

func (rc *Recipe) Execute(name string, block func(*ExecuteBuilder)) (*resource.Record, error) {
	b := &ExecuteBuilder{commonBuilder: newCommonBuilder(rc), props: resource.ExecuteProps{Action: "run"}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddExecute(name, b.props, b.args)
}

func (b *ExecuteBuilder) Command(c string) *ExecuteBuilder { b.props.Command = c; return b }
func (b *ExecuteBuilder) Cwd(c string) *ExecuteBuilder     { b.props.Cwd = c; return b }
func (b *ExecuteBuilder) User(u string) *ExecuteBuilder    { b.props.User = u; return b }
func (b *ExecuteBuilder) Group(g string) *ExecuteBuilder   { b.props.Group = g; return b }
func (b *ExecuteBuilder) Environment(pairs []string) *ExecuteBuilder {
	b.props.EnvironmentPairs = pairs
	return b
}
func (b *ExecuteBuilder) LiveStream(v bool) *ExecuteBuilder { b.props.LiveStream = v; return b }
func (b *ExecuteBuilder) Creates(path string) *ExecuteBuilder { b.props.Creates = path; return b }
func (b *ExecuteBuilder) Action(a string) *ExecuteBuilder     { b.props.Action = a; return b }

// TemplateBuilder collects add_template's builder-method mutations.
type TemplateBuilder struct {
	commonBuilder
	props resource.TemplateProps
}

func (rc *Recipe) Template(path string, block func(*TemplateBuilder)) (*resource.Record, error) {
	b := &TemplateBuilder{commonBuilder: newCommonBuilder(rc), props: resource.TemplateProps{Path: resource.Name(path), Action: "create"}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddTemplate(b.props, b.args)
}

func (b *TemplateBuilder) Source(s string) *TemplateBuilder { b.props.Source = s; return b }
func (b *TemplateBuilder) Mode(m string) *TemplateBuilder   { b.props.Mode = m; return b }
func (b *TemplateBuilder) Owner(o string) *TemplateBuilder  { b.props.Owner = o; return b }
func (b *TemplateBuilder) Group(g string) *TemplateBuilder  { b.props.Group = g; return b }
func (b *TemplateBuilder) Action(a string) *TemplateBuilder { b.props.Action = a; return b }
func (b *TemplateBuilder) Variable(name string, literal string, typeTag string) *TemplateBuilder {
	b.props.Variables = append(b.props.Variables, resource.TemplateVariable{Name: name, Literal: literal, Type: typeTag})
	return b
}

// GitBuilder collects add_git's builder-method mutations.
type GitBuilder struct {
	commonBuilder
	props resource.GitProps
}

func (rc *Recipe) Git(destination string, block func(*GitBuilder)) (*resource.Record, error) {
	props := resource.GitProps{
		Destination: resource.Name(destination), Revision: "HEAD", CheckoutBranch: "deploy",
		Remote: "origin", EnableCheckout: true, EnableStrictHostKeyChecking: true, Action: "sync",
	}
	b := &GitBuilder{commonBuilder: newCommonBuilder(rc), props: props}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddGit(b.props, b.args)
}

func (b *GitBuilder) Repository(r string) *GitBuilder        { b.props.Repository = r; return b }
func (b *GitBuilder) Revision(r string) *GitBuilder          { b.props.Revision = r; return b }
func (b *GitBuilder) CheckoutBranch(c string) *GitBuilder    { b.props.CheckoutBranch = c; return b }
func (b *GitBuilder) Remote(r string) *GitBuilder            { b.props.Remote = r; return b }
func (b *GitBuilder) Depth(d int) *GitBuilder                { b.props.Depth = d; return b }
func (b *GitBuilder) EnableCheckout(v bool) *GitBuilder       { b.props.EnableCheckout = v; return b }
func (b *GitBuilder) EnableSubmodules(v bool) *GitBuilder     { b.props.EnableSubmodules = v; return b }
func (b *GitBuilder) SSHKey(k string) *GitBuilder             { b.props.SSHKey = k; return b }
func (b *GitBuilder) EnableStrictHostKeyChecking(v bool) *GitBuilder {
	b.props.EnableStrictHostKeyChecking = v
	return b
}
func (b *GitBuilder) User(u string) *GitBuilder  { b.props.User = u; return b }
func (b *GitBuilder) Group(g string) *GitBuilder { b.props.Group = g; return b }
func (b *GitBuilder) Action(a string) *GitBuilder { b.props.Action = a; return b }

// PackageBuilder collects add_package's builder-method mutations.
type PackageBuilder struct {
	commonBuilder
	props resource.PackageProps
}

func (rc *Recipe) Package(name string, names []string, block func(*PackageBuilder)) (*resource.Record, error) {
	if len(names) == 0 {
		names = []string{name}
	}
	b := &PackageBuilder{commonBuilder: newCommonBuilder(rc), props: resource.PackageProps{Names: names, Action: "install"}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddPackage(name, b.props, b.args)
}

func (b *PackageBuilder) Version(v string) *PackageBuilder     { b.props.Version = v; return b }
func (b *PackageBuilder) Options(o []string) *PackageBuilder   { b.props.Options = o; return b }
func (b *PackageBuilder) Provider(p string) *PackageBuilder    { b.props.Provider = p; return b }
func (b *PackageBuilder) Action(a string) *PackageBuilder      { b.props.Action = a; return b }

// SystemdUnitBuilder collects add_systemd_unit's builder-method mutations.
type SystemdUnitBuilder struct {
	commonBuilder
	props resource.SystemdUnitProps
}

func (rc *Recipe) SystemdUnit(name string, block func(*SystemdUnitBuilder)) (*resource.Record, error) {
	b := &SystemdUnitBuilder{commonBuilder: newCommonBuilder(rc), props: resource.SystemdUnitProps{UnitName: name, Actions: []string{"create"}, Verify: true}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddSystemdUnit(b.props, b.args)
}

func (b *SystemdUnitBuilder) Content(c string) *SystemdUnitBuilder     { b.props.Content = c; return b }
func (b *SystemdUnitBuilder) Actions(a ...string) *SystemdUnitBuilder  { b.props.Actions = a; return b }
func (b *SystemdUnitBuilder) Verify(v bool) *SystemdUnitBuilder        { b.props.Verify = v; return b }

// RubyBlockBuilder collects add_ruby_block's builder-method mutations.
type RubyBlockBuilder struct {
	commonBuilder
	recipe *Recipe
	props  resource.RubyBlockProps
}

func (rc *Recipe) RubyBlock(name string, fn BlockFunc, block func(*RubyBlockBuilder)) (*resource.Record, error) {
	b := &RubyBlockBuilder{commonBuilder: newCommonBuilder(rc), recipe: rc, props: resource.RubyBlockProps{Action: "run", Callable: rc.Interpreter.Block(fn)}}
	if block != nil {
		block(b)
	}
	return rc.Registry.AddRubyBlock(name, b.props, b.args)
}

func (b *RubyBlockBuilder) Environment(pairs []string) *RubyBlockBuilder {
	b.props.EnvironmentPairs = pairs
	return b
}
func (b *RubyBlockBuilder) Action(a string) *RubyBlockBuilder { b.props.Action = a; return b }

// AWSKMSBuilder collects add_aws_kms's builder-method mutations.
type AWSKMSBuilder struct {
	commonBuilder
	props   resource.AWSKMSProps
	sourceErr error
}

func (rc *Recipe) AWSKMS(outputPath string, block func(*AWSKMSBuilder)) (*resource.Record, error) {
	b := &AWSKMSBuilder{commonBuilder: newCommonBuilder(rc), props: resource.AWSKMSProps{
		Path: resource.Name(outputPath), Algorithm: "SYMMETRIC_DEFAULT", Action: "decrypt", Mode: "0600",
	}}
	if block != nil {
		block(b)
	}
	if b.sourceErr != nil {
		return nil, b.sourceErr
	}
	return rc.Registry.AddAWSKMS(outputPath, b.props, b.args)
}

func (b *AWSKMSBuilder) Region(r string) *AWSKMSBuilder          { b.props.Region = r; return b }
func (b *AWSKMSBuilder) Credentials(accessKeyID, secretKey, sessionToken string) *AWSKMSBuilder {
	b.props.AccessKeyID, b.props.SecretAccessKey, b.props.SessionToken = accessKeyID, secretKey, sessionToken
	return b
}
func (b *AWSKMSBuilder) KeyID(k string) *AWSKMSBuilder        { b.props.KeyID = k; return b }
func (b *AWSKMSBuilder) Algorithm(a string) *AWSKMSBuilder    { b.props.Algorithm = a; return b }
// Source resolves uri through the source-URI grammar immediately. A
// malformed or unreadable source is recorded rather than raised here (the
// builder has no error return of its own), and surfaced when AWSKMS()
// finally constructs the record.
func (b *AWSKMSBuilder) Source(uri string) *AWSKMSBuilder {
	action := b.props.Action
	if action == "" {
		action = "decrypt"
	}
	parsed, err := ParseSourceURI(uri, DefaultSourceEncoding(action))
	if err != nil {
		b.sourceErr = err
		return b
	}
	b.props.ParsedSource = parsed.Data
	b.props.SourceEncoding = parsed.Encoding
	b.props.TargetEncoding = DefaultTargetEncoding(action)
	return b
}
func (b *AWSKMSBuilder) Mode(m string) *AWSKMSBuilder  { b.props.Mode = m; return b }
func (b *AWSKMSBuilder) Owner(o string) *AWSKMSBuilder { b.props.Owner = o; return b }
func (b *AWSKMSBuilder) Group(g string) *AWSKMSBuilder { b.props.Group = g; return b }
func (b *AWSKMSBuilder) Action(a string) *AWSKMSBuilder { b.props.Action = a; return b }
