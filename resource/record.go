// Package resource holds the convergence engine's data model: the tagged
// union of resource kinds, the CommonProps bundle shared by
// every kind, and the ApplyResult/notification types that tie them to the
// scheduler.
package resource

import "fmt"

// Name identifies a record for the purposes of notifications/subscriptions
// and, for path-bearing kinds, doubles as the absolute path.
type Name string

// Callable is an opaque reference to a scripted guard predicate or block
// body, owned by whatever script.Interpreter registered this record. The
// resource package never invokes one; only the scheduler does, through
// script.Interpreter, keeping this package free of a dependency on the
// scripting layer.
type Callable interface{}

// Guard is an only_if/not_if predicate: either a shell command string, or a
// scripted callable, never both.
type Guard struct {
	Command  string
	Callable Callable
}

// Empty reports whether no guard was set.
func (g Guard) Empty() bool {
	return g.Command == "" && g.Callable == nil
}

// CommonProps is shared by every resource kind.
type CommonProps struct {
	OnlyIf             Guard
	NotIf              Guard
	IgnoreFailure      bool
	Notifications      []Notification
	Subscriptions      []Subscription
	InterpreterHandle  Callable
}

// Kind discriminates the ResourceRecord tagged union.
type Kind string

const (
	KindFile         Kind = "file"
	KindDirectory    Kind = "directory"
	KindLink         Kind = "link"
	KindRemoteFile   Kind = "remote_file"
	KindExecute      Kind = "execute"
	KindTemplate     Kind = "template"
	KindGit          Kind = "git"
	KindPackage      Kind = "package"
	KindSystemdUnit  Kind = "systemd_unit"
	KindRubyBlock    Kind = "ruby_block"
	KindAWSKMS       Kind = "aws_kms"
)

// Record is a tagged union over every resource kind: exactly one of
// the kind-specific fields is non-nil, selected by Kind.
type Record struct {
	Kind Kind
	Name Name
	Common CommonProps

	File        *FileProps
	Directory   *DirectoryProps
	Link        *LinkProps
	RemoteFile  *RemoteFileProps
	Execute     *ExecuteProps
	Template    *TemplateProps
	Git         *GitProps
	Package     *PackageProps
	SystemdUnit *SystemdUnitProps
	RubyBlock   *RubyBlockProps
	AWSKMS      *AWSKMSProps
}

// Validate checks the fields required before a record can be applied.
// A non-nil error here is a Validation error: fatal before any apply runs.
func (r *Record) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%s: name/identity must not be empty", r.Kind)
	}
	switch r.Kind {
	case KindFile:
		if r.File == nil {
			return fmt.Errorf("%s %q: missing file properties", r.Kind, r.Name)
		}
	case KindDirectory:
		if r.Directory == nil {
			return fmt.Errorf("%s %q: missing directory properties", r.Kind, r.Name)
		}
	case KindLink:
		if r.Link == nil || r.Link.Target == "" {
			return fmt.Errorf("%s %q: target must not be empty", r.Kind, r.Name)
		}
	case KindRemoteFile:
		if r.RemoteFile == nil || r.RemoteFile.SourceURL == "" {
			return fmt.Errorf("%s %q: source_url must not be empty", r.Kind, r.Name)
		}
	case KindExecute:
		if r.Execute == nil || r.Execute.Command == "" {
			return fmt.Errorf("%s %q: command must not be empty", r.Kind, r.Name)
		}
	case KindTemplate:
		if r.Template == nil || r.Template.Source == "" {
			return fmt.Errorf("%s %q: source must not be empty", r.Kind, r.Name)
		}
	case KindGit:
		if r.Git == nil || r.Git.Repository == "" {
			return fmt.Errorf("%s %q: repository must not be empty", r.Kind, r.Name)
		}
	case KindPackage:
		if r.Package == nil || len(r.Package.Names) == 0 {
			return fmt.Errorf("%s %q: names must not be empty", r.Kind, r.Name)
		}
	case KindSystemdUnit:
		if r.SystemdUnit == nil || len(r.SystemdUnit.Actions) == 0 {
			return fmt.Errorf("%s %q: actions must not be empty", r.Kind, r.Name)
		}
	case KindRubyBlock:
		if r.RubyBlock == nil || r.RubyBlock.Callable == nil {
			return fmt.Errorf("%s %q: block callable must not be nil", r.Kind, r.Name)
		}
	case KindAWSKMS:
		if r.AWSKMS == nil || r.AWSKMS.KeyID == "" {
			return fmt.Errorf("%s %q: key_id must not be empty", r.Kind, r.Name)
		}
	default:
		return fmt.Errorf("unknown resource kind %q for %q", r.Kind, r.Name)
	}
	return nil
}

// DefaultAction returns the action that apply should run absent an explicit
// override (used by immediate/delayed notification dispatch, which targets
// a specific action rather than the record's own default).
func (r *Record) DefaultAction() string {
	switch r.Kind {
	case KindFile, KindDirectory, KindLink:
		return "create"
	case KindRemoteFile:
		return "create"
	case KindExecute:
		return "run"
	case KindTemplate:
		return "create"
	case KindGit:
		return "sync"
	case KindPackage:
		return "install"
	case KindSystemdUnit:
		if len(r.SystemdUnit.Actions) > 0 {
			return r.SystemdUnit.Actions[0]
		}
		return "create"
	case KindRubyBlock:
		return "run"
	case KindAWSKMS:
		return "decrypt"
	}
	return ""
}
