package script

import (
	"fmt"
	"sync"

	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

// CommonArgs carries the guard/notification/subscription fields every
// add_* registration function accepts, flattened the way a recipe
// function's keyword arguments describe guards and events.
type CommonArgs struct {
	OnlyIf        resource.Guard
	NotIf         resource.Guard
	IgnoreFailure bool
	Notifications []resource.Notification
	Subscriptions []resource.Subscription
}

func (c CommonArgs) toCommon(interp Callable) resource.CommonProps {
	notifications := make([]resource.Notification, len(c.Notifications))
	for i, n := range c.Notifications {
		n.Timing = resource.NormalizeTiming(string(n.Timing))
		notifications[i] = n
	}
	subscriptions := make([]resource.Subscription, len(c.Subscriptions))
	for i, s := range c.Subscriptions {
		s.Timing = resource.NormalizeTiming(string(s.Timing))
		subscriptions[i] = s
	}
	return resource.CommonProps{
		OnlyIf:            c.OnlyIf,
		NotIf:             c.NotIf,
		IgnoreFailure:     c.IgnoreFailure,
		Notifications:     notifications,
		Subscriptions:     subscriptions,
		InterpreterHandle: interp,
	}
}

// Registry is the native side of the interpreter host: the ResourceList,
// plus the one typed registration function per resource kind that a
// scripting binding's shim classes call exactly once per declaration.
type Registry struct {
	mu          sync.Mutex
	interpreter Interpreter
	records     []*resource.Record
}

// NewRegistry returns an empty ResourceList bound to the given interpreter,
// used to pin/unpin guard and block callables as records are added and
// torn down.
func NewRegistry(interp Interpreter) *Registry {
	return &Registry{interpreter: interp}
}

// Records returns the ResourceList built up so far, in declaration order.
func (reg *Registry) Records() []*resource.Record {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*resource.Record, len(reg.records))
	copy(out, reg.records)
	return out
}

// Teardown unpins every scripted callable referenced by the ResourceList,
// the record-destruction lifecycle step at the end of a recipe run.
func (reg *Registry) Teardown() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, r := range reg.records {
		if r.Common.InterpreterHandle != nil {
			reg.interpreter.Unpin(r.Common.InterpreterHandle)
		}
		if !r.Common.OnlyIf.Empty() && r.Common.OnlyIf.Callable != nil {
			reg.interpreter.Unpin(r.Common.OnlyIf.Callable)
		}
		if !r.Common.NotIf.Empty() && r.Common.NotIf.Callable != nil {
			reg.interpreter.Unpin(r.Common.NotIf.Callable)
		}
		if r.Kind == resource.KindRubyBlock && r.RubyBlock.Callable != nil {
			reg.interpreter.Unpin(r.RubyBlock.Callable)
		}
	}
	reg.records = nil
}

func (reg *Registry) pinGuards(c resource.CommonProps) {
	if c.OnlyIf.Callable != nil {
		reg.interpreter.Pin(c.OnlyIf.Callable)
	}
	if c.NotIf.Callable != nil {
		reg.interpreter.Pin(c.NotIf.Callable)
	}
}

func (reg *Registry) append(r *resource.Record) (*resource.Record, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.pinGuards(r.Common)
	reg.records = append(reg.records, r)
	return r, nil
}

// AddFile is the native registration function called by a recipe's file
// builder shim after path resolution.
func (reg *Registry) AddFile(p resource.FileProps, common CommonArgs) (*resource.Record, error) {
	if p.Path == "" {
		return nil, fmt.Errorf("add_file: path must not be empty")
	}
	abs, err := pathutil.Resolve(string(p.Path))
	if err != nil {
		return nil, fmt.Errorf("add_file: %w", err)
	}
	p.Path = resource.Name(abs)
	if p.Action == "" {
		p.Action = "create"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindFile, Name: p.Path, File: &p,
		Common: common.toCommon(nil),
	})
}

// AddDirectory is add_directory.
func (reg *Registry) AddDirectory(p resource.DirectoryProps, common CommonArgs) (*resource.Record, error) {
	abs, err := pathutil.Resolve(string(p.Path))
	if err != nil {
		return nil, fmt.Errorf("add_directory: %w", err)
	}
	p.Path = resource.Name(abs)
	if p.Action == "" {
		p.Action = "create"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindDirectory, Name: p.Path, Directory: &p,
		Common: common.toCommon(nil),
	})
}

// AddLink is add_link.
func (reg *Registry) AddLink(p resource.LinkProps, common CommonArgs) (*resource.Record, error) {
	abs, err := pathutil.Resolve(string(p.Path))
	if err != nil {
		return nil, fmt.Errorf("add_link: %w", err)
	}
	p.Path = resource.Name(abs)
	if p.Action == "" {
		p.Action = "create"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindLink, Name: p.Path, Link: &p,
		Common: common.toCommon(nil),
	})
}

// AddRemoteFile is add_remote_file.
func (reg *Registry) AddRemoteFile(p resource.RemoteFileProps, common CommonArgs) (*resource.Record, error) {
	abs, err := pathutil.Resolve(string(p.Path))
	if err != nil {
		return nil, fmt.Errorf("add_remote_file: %w", err)
	}
	p.Path = resource.Name(abs)
	if p.Action == "" {
		p.Action = "create"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindRemoteFile, Name: p.Path, RemoteFile: &p,
		Common: common.toCommon(nil),
	})
}

// AddExecute is add_execute. Execute resources are named, not path-bearing.
func (reg *Registry) AddExecute(name string, p resource.ExecuteProps, common CommonArgs) (*resource.Record, error) {
	if p.Action == "" {
		p.Action = "run"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindExecute, Name: resource.Name(name), Execute: &p,
		Common: common.toCommon(nil),
	})
}

// AddTemplate is add_template.
func (reg *Registry) AddTemplate(p resource.TemplateProps, common CommonArgs) (*resource.Record, error) {
	abs, err := pathutil.Resolve(string(p.Path))
	if err != nil {
		return nil, fmt.Errorf("add_template: %w", err)
	}
	p.Path = resource.Name(abs)
	if p.Action == "" {
		p.Action = "create"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindTemplate, Name: p.Path, Template: &p,
		Common: common.toCommon(nil),
	})
}

// AddGit is add_git.
func (reg *Registry) AddGit(p resource.GitProps, common CommonArgs) (*resource.Record, error) {
	abs, err := pathutil.Resolve(string(p.Destination))
	if err != nil {
		return nil, fmt.Errorf("add_git: %w", err)
	}
	p.Destination = resource.Name(abs)
	if p.Revision == "" {
		p.Revision = "HEAD"
	}
	if p.CheckoutBranch == "" {
		p.CheckoutBranch = "deploy"
	}
	if p.Remote == "" {
		p.Remote = "origin"
	}
	if p.Action == "" {
		p.Action = "sync"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindGit, Name: p.Destination, Git: &p,
		Common: common.toCommon(nil),
	})
}

// AddPackage is add_package (and the apt_package/homebrew_package aliases,
// which simply pre-set Provider).
func (reg *Registry) AddPackage(name string, p resource.PackageProps, common CommonArgs) (*resource.Record, error) {
	if p.Action == "" {
		p.Action = "install"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindPackage, Name: resource.Name(name), Package: &p,
		Common: common.toCommon(nil),
	})
}

// AddSystemdUnit is add_systemd_unit.
func (reg *Registry) AddSystemdUnit(p resource.SystemdUnitProps, common CommonArgs) (*resource.Record, error) {
	if len(p.Actions) == 0 {
		p.Actions = []string{"create"}
	}
	return reg.append(&resource.Record{
		Kind: resource.KindSystemdUnit, Name: resource.Name(p.UnitName), SystemdUnit: &p,
		Common: common.toCommon(nil),
	})
}

// AddRubyBlock is add_ruby_block. The callable is pinned immediately since
// it is the resource's very reason for existing (unlike a guard, which may
// be absent).
func (reg *Registry) AddRubyBlock(name string, p resource.RubyBlockProps, common CommonArgs) (*resource.Record, error) {
	if p.Action == "" {
		p.Action = "run"
	}
	r := &resource.Record{
		Kind: resource.KindRubyBlock, Name: resource.Name(name), RubyBlock: &p,
		Common: common.toCommon(nil),
	}
	rec, err := reg.append(r)
	if err != nil {
		return nil, err
	}
	reg.interpreter.Pin(p.Callable)
	return rec, nil
}

// AddAWSKMS is add_aws_kms.
func (reg *Registry) AddAWSKMS(name string, p resource.AWSKMSProps, common CommonArgs) (*resource.Record, error) {
	abs, err := pathutil.Resolve(string(p.Path))
	if err != nil {
		return nil, fmt.Errorf("add_aws_kms: %w", err)
	}
	p.Path = resource.Name(abs)
	if p.Algorithm == "" {
		p.Algorithm = "SYMMETRIC_DEFAULT"
	}
	if p.Action == "" {
		p.Action = "decrypt"
	}
	if p.Mode == "" {
		p.Mode = "0600"
	}
	return reg.append(&resource.Record{
		Kind: resource.KindAWSKMS, Name: resource.Name(name), AWSKMS: &p,
		Common: common.toCommon(nil),
	})
}
