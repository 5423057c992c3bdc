// Package recipefile loads a declarative YAML recipe document into the
// engine's native []*resource.Record list. It stands in for the embedded-
// interpreter registration ABI for recipes that don't need a scripted guard
// or ruby_block body: a YAML document is the one recipe surface this
// repository's own CLI loads directly, using jinzhu/configor's YAML
// conventions.
package recipefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ratazzi/hola/resource"
)

// Document is the top-level shape of a recipe YAML file: an ordered list
// of resource declarations, applied in file order.
type Document struct {
	Resources []Entry `yaml:"resources"`
}

// Entry is one resource declaration. Exactly one of the kind-specific
// property blocks should be set, matching Kind.
type Entry struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	OnlyIf        string   `yaml:"only_if"`
	NotIf         string   `yaml:"not_if"`
	IgnoreFailure bool     `yaml:"ignore_failure"`
	Notifies      []Edge   `yaml:"notifies"`
	Subscribes    []Edge   `yaml:"subscribes"`

	File        *FileEntry        `yaml:"file"`
	Directory   *DirectoryEntry   `yaml:"directory"`
	Link        *LinkEntry        `yaml:"link"`
	RemoteFile  *RemoteFileEntry  `yaml:"remote_file"`
	Execute     *ExecuteEntry     `yaml:"execute"`
	Template    *TemplateEntry    `yaml:"template"`
	Git         *GitEntry         `yaml:"git"`
	Package     *PackageEntry     `yaml:"package"`
	SystemdUnit *SystemdUnitEntry `yaml:"systemd_unit"`
	AWSKMS      *AWSKMSEntry      `yaml:"aws_kms"`
}

// Edge is one notifies/subscribes declaration.
type Edge struct {
	Resource string `yaml:"resource"`
	Action   string `yaml:"action"`
	Timing   string `yaml:"timing"` // "immediate" or "delayed" (default)
}

type FileEntry struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
	Mode    string `yaml:"mode"`
	Owner   string `yaml:"owner"`
	Group   string `yaml:"group"`
	Backup  int    `yaml:"backup"`
	Action  string `yaml:"action"`
}

type DirectoryEntry struct {
	Path      string `yaml:"path"`
	Mode      string `yaml:"mode"`
	Owner     string `yaml:"owner"`
	Group     string `yaml:"group"`
	Recursive bool   `yaml:"recursive"`
	Action    string `yaml:"action"`
}

type LinkEntry struct {
	Path   string `yaml:"path"`
	Target string `yaml:"target"`
	Owner  string `yaml:"owner"`
	Group  string `yaml:"group"`
	Action string `yaml:"action"`
}

type RemoteFileEntry struct {
	Path            string            `yaml:"path"`
	SourceURL       string            `yaml:"source_url"`
	Mode            string            `yaml:"mode"`
	Owner           string            `yaml:"owner"`
	Group           string            `yaml:"group"`
	Checksum        string            `yaml:"checksum"`
	Backup          int               `yaml:"backup"`
	Headers         map[string]string `yaml:"headers"`
	UseETag         bool              `yaml:"use_etag"`
	UseLastModified bool              `yaml:"use_last_modified"`
	ForceUnlink     bool              `yaml:"force_unlink"`
	Action          string            `yaml:"action"`

	RemoteUser     string `yaml:"remote_user"`
	RemotePassword string `yaml:"remote_password"`
	RemoteDomain   string `yaml:"remote_domain"`

	SSHPrivateKey               string `yaml:"ssh_private_key"`
	SSHPublicKey                string `yaml:"ssh_public_key"`
	SSHKnownHosts               string `yaml:"ssh_known_hosts"`
	EnableStrictHostKeyChecking bool   `yaml:"enable_strict_host_key_checking"`

	AWSAccessKey string `yaml:"aws_access_key"`
	AWSSecretKey string `yaml:"aws_secret_key"`
	AWSRegion    string `yaml:"aws_region"`
	AWSEndpoint  string `yaml:"aws_endpoint"`
}

type ExecuteEntry struct {
	Command          string   `yaml:"command"`
	Cwd              string   `yaml:"cwd"`
	User             string   `yaml:"user"`
	Group            string   `yaml:"group"`
	EnvironmentPairs []string `yaml:"environment_pairs"`
	LiveStream       bool     `yaml:"live_stream"`
	Creates          string   `yaml:"creates"`
	Action           string   `yaml:"action"`
}

type TemplateVariableEntry struct {
	Name    string `yaml:"name"`
	Literal string `yaml:"literal"`
	Type    string `yaml:"type"`
}

type TemplateEntry struct {
	Path      string                  `yaml:"path"`
	Source    string                  `yaml:"source"`
	Mode      string                  `yaml:"mode"`
	Owner     string                  `yaml:"owner"`
	Group     string                  `yaml:"group"`
	Variables []TemplateVariableEntry `yaml:"variables"`
	Action    string                  `yaml:"action"`
}

type GitEntry struct {
	Repository                 string `yaml:"repository"`
	Destination                string `yaml:"destination"`
	Revision                    string `yaml:"revision"`
	CheckoutBranch              string `yaml:"checkout_branch"`
	Remote                      string `yaml:"remote"`
	Depth                       int    `yaml:"depth"`
	EnableSubmodules            bool   `yaml:"enable_submodules"`
	SSHKey                      string `yaml:"ssh_key"`
	EnableStrictHostKeyChecking bool   `yaml:"enable_strict_host_key_checking"`
	User                        string `yaml:"user"`
	Group                       string `yaml:"group"`
	Action                      string `yaml:"action"`
}

type PackageEntry struct {
	Names    []string `yaml:"names"`
	Version  string   `yaml:"version"`
	Options  []string `yaml:"options"`
	Provider string   `yaml:"provider"`
	Action   string   `yaml:"action"`
}

type SystemdUnitEntry struct {
	UnitName string   `yaml:"unit_name"`
	Content  string   `yaml:"content"`
	Actions  []string `yaml:"actions"`
	Verify   bool     `yaml:"verify"`
}

type AWSKMSEntry struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	KeyID           string `yaml:"key_id"`
	Algorithm       string `yaml:"algorithm"`
	Source          string `yaml:"source"` // source-URI grammar, resolved via script.ParseSourceURI
	Path            string `yaml:"path"`
	Mode            string `yaml:"mode"`
	Owner           string `yaml:"owner"`
	Group           string `yaml:"group"`
	Action          string `yaml:"action"`
}

// Load reads and parses a recipe YAML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipefile: reading %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("recipefile: parsing %s: %w", path, err)
	}
	return &doc, nil
}

// ToRecords converts a parsed Document into the engine's native record
// list, resolving each entry's common guard/notification fields the same
// way regardless of kind.
func (doc *Document) ToRecords(resolveSource func(uri string, action string) ([]byte, error)) ([]*resource.Record, error) {
	records := make([]*resource.Record, 0, len(doc.Resources))
	for _, e := range doc.Resources {
		rec := &resource.Record{
			Kind: resource.Kind(e.Kind),
			Name: resource.Name(e.Name),
			Common: resource.CommonProps{
				IgnoreFailure: e.IgnoreFailure,
			},
		}
		if e.OnlyIf != "" {
			rec.Common.OnlyIf = resource.Guard{Command: e.OnlyIf}
		}
		if e.NotIf != "" {
			rec.Common.NotIf = resource.Guard{Command: e.NotIf}
		}
		for _, n := range e.Notifies {
			rec.Common.Notifications = append(rec.Common.Notifications, resource.Notification{
				Target: resource.Name(n.Resource), Action: n.Action, Timing: resource.NormalizeTiming(n.Timing),
			})
		}
		for _, s := range e.Subscribes {
			rec.Common.Subscriptions = append(rec.Common.Subscriptions, resource.Subscription{
				Source: resource.Name(s.Resource), Action: s.Action, Timing: resource.NormalizeTiming(s.Timing),
			})
		}

		if err := fillKind(rec, &e, resolveSource); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func fillKind(rec *resource.Record, e *Entry, resolveSource func(string, string) ([]byte, error)) error {
	switch rec.Kind {
	case resource.KindFile:
		if e.File == nil {
			return fmt.Errorf("recipefile: %q: kind file requires a file: block", e.Name)
		}
		rec.File = &resource.FileProps{
			Path: resource.Name(e.File.Path), Content: []byte(e.File.Content), Mode: e.File.Mode,
			Owner: e.File.Owner, Group: e.File.Group, Backup: e.File.Backup, Action: e.File.Action,
		}
	case resource.KindDirectory:
		if e.Directory == nil {
			return fmt.Errorf("recipefile: %q: kind directory requires a directory: block", e.Name)
		}
		rec.Directory = &resource.DirectoryProps{
			Path: resource.Name(e.Directory.Path), Mode: e.Directory.Mode, Owner: e.Directory.Owner,
			Group: e.Directory.Group, Recursive: e.Directory.Recursive, Action: e.Directory.Action,
		}
	case resource.KindLink:
		if e.Link == nil {
			return fmt.Errorf("recipefile: %q: kind link requires a link: block", e.Name)
		}
		rec.Link = &resource.LinkProps{
			Path: resource.Name(e.Link.Path), Target: e.Link.Target, Owner: e.Link.Owner,
			Group: e.Link.Group, Action: e.Link.Action,
		}
	case resource.KindRemoteFile:
		if e.RemoteFile == nil {
			return fmt.Errorf("recipefile: %q: kind remote_file requires a remote_file: block", e.Name)
		}
		rf := e.RemoteFile
		rec.RemoteFile = &resource.RemoteFileProps{
			Path: resource.Name(rf.Path), SourceURL: rf.SourceURL, Mode: rf.Mode, Owner: rf.Owner, Group: rf.Group,
			Checksum: rf.Checksum, Backup: rf.Backup, Headers: rf.Headers, UseETag: rf.UseETag,
			UseLastModified: rf.UseLastModified, ForceUnlink: rf.ForceUnlink, Action: rf.Action,
			RemoteUser: rf.RemoteUser, RemotePassword: rf.RemotePassword, RemoteDomain: rf.RemoteDomain,
			SSHPrivateKey: rf.SSHPrivateKey, SSHPublicKey: rf.SSHPublicKey, SSHKnownHosts: rf.SSHKnownHosts,
			EnableStrictHostKeyChecking: rf.EnableStrictHostKeyChecking,
			AWSAccessKey:                rf.AWSAccessKey, AWSSecretKey: rf.AWSSecretKey, AWSRegion: rf.AWSRegion, AWSEndpoint: rf.AWSEndpoint,
		}
	case resource.KindExecute:
		if e.Execute == nil {
			return fmt.Errorf("recipefile: %q: kind execute requires an execute: block", e.Name)
		}
		rec.Execute = &resource.ExecuteProps{
			Command: e.Execute.Command, Cwd: e.Execute.Cwd, User: e.Execute.User, Group: e.Execute.Group,
			EnvironmentPairs: e.Execute.EnvironmentPairs, LiveStream: e.Execute.LiveStream,
			Creates: e.Execute.Creates, Action: e.Execute.Action,
		}
	case resource.KindTemplate:
		if e.Template == nil {
			return fmt.Errorf("recipefile: %q: kind template requires a template: block", e.Name)
		}
		vars := make([]resource.TemplateVariable, len(e.Template.Variables))
		for i, v := range e.Template.Variables {
			vars[i] = resource.TemplateVariable{Name: v.Name, Literal: v.Literal, Type: v.Type}
		}
		rec.Template = &resource.TemplateProps{
			Path: resource.Name(e.Template.Path), Source: e.Template.Source, Mode: e.Template.Mode,
			Owner: e.Template.Owner, Group: e.Template.Group, Variables: vars, Action: e.Template.Action,
		}
	case resource.KindGit:
		if e.Git == nil {
			return fmt.Errorf("recipefile: %q: kind git requires a git: block", e.Name)
		}
		g := e.Git
		rec.Git = &resource.GitProps{
			Repository: g.Repository, Destination: resource.Name(g.Destination), Revision: g.Revision,
			CheckoutBranch: g.CheckoutBranch, Remote: g.Remote, Depth: g.Depth,
			EnableSubmodules: g.EnableSubmodules, SSHKey: g.SSHKey,
			EnableStrictHostKeyChecking: g.EnableStrictHostKeyChecking, User: g.User, Group: g.Group, Action: g.Action,
		}
	case resource.KindPackage:
		if e.Package == nil {
			return fmt.Errorf("recipefile: %q: kind package requires a package: block", e.Name)
		}
		rec.Package = &resource.PackageProps{
			Names: e.Package.Names, Version: e.Package.Version, Options: e.Package.Options,
			Provider: e.Package.Provider, Action: e.Package.Action,
		}
	case resource.KindSystemdUnit:
		if e.SystemdUnit == nil {
			return fmt.Errorf("recipefile: %q: kind systemd_unit requires a systemd_unit: block", e.Name)
		}
		rec.SystemdUnit = &resource.SystemdUnitProps{
			UnitName: e.SystemdUnit.UnitName, Content: e.SystemdUnit.Content,
			Actions: e.SystemdUnit.Actions, Verify: e.SystemdUnit.Verify,
		}
	case resource.KindAWSKMS:
		if e.AWSKMS == nil {
			return fmt.Errorf("recipefile: %q: kind aws_kms requires an aws_kms: block", e.Name)
		}
		a := e.AWSKMS
		parsed, err := resolveSource(a.Source, a.Action)
		if err != nil {
			return fmt.Errorf("recipefile: %q: %w", e.Name, err)
		}
		rec.AWSKMS = &resource.AWSKMSProps{
			Region: a.Region, AccessKeyID: a.AccessKeyID, SecretAccessKey: a.SecretAccessKey,
			SessionToken: a.SessionToken, KeyID: a.KeyID, Algorithm: a.Algorithm, ParsedSource: parsed,
			Path: resource.Name(a.Path), Mode: a.Mode, Owner: a.Owner, Group: a.Group, Action: a.Action,
		}
	case resource.KindRubyBlock:
		return fmt.Errorf("recipefile: %q: ruby_block requires a scripted callable and cannot be declared in a YAML recipe", e.Name)
	default:
		return fmt.Errorf("recipefile: %q: unknown kind %q", e.Name, e.Kind)
	}
	return nil
}
