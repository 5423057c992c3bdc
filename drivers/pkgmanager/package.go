// Package pkgmanager implements the package resource kind by dispatching
// to one of several concrete package-manager backends:
// apt on Linux, Homebrew on macOS, or Docker image pulls when a recipe
// asks for the docker provider explicitly. Provider selection follows
// PackageProps.Provider when set, else the host's runtime.GOOS.
package pkgmanager

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/resource"
)

// provider is one package-manager backend's install/remove/upgrade verbs.
type provider interface {
	install(ctx context.Context, names []string, version string, options []string) (bool, error)
	remove(ctx context.Context, names []string) (bool, error)
	upgrade(ctx context.Context, names []string, options []string) (bool, error)
}

// Driver converges resource.PackageProps records.
type Driver struct {
	Env map[string]string // forced environment for the apt provider, e.g. AptEnv from config
}

// New returns a package Driver whose apt provider runs with aptEnv forced
// onto every apt-get invocation.
func New(aptEnv map[string]string) *Driver { return &Driver{Env: aptEnv} }

func (d *Driver) Apply(ctx context.Context, _ *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.Package
	if action == "nothing" {
		return resource.NoUpdate(action, "action is nothing"), nil
	}

	prov, err := d.providerFor(p.Provider)
	if err != nil {
		return resource.ApplyResult{}, err
	}

	var updated bool
	switch action {
	case "remove":
		updated, err = prov.remove(ctx, p.Names)
		if err != nil {
			return resource.ApplyResult{}, &drivers.PackageError{Op: "RemoveFailed", Names: p.Names, Wrapped: err}
		}
	case "upgrade":
		updated, err = prov.upgrade(ctx, p.Names, p.Options)
		if err != nil {
			return resource.ApplyResult{}, &drivers.PackageError{Op: "UpgradeFailed", Names: p.Names, Wrapped: err}
		}
	default: // "install"
		updated, err = prov.install(ctx, p.Names, p.Version, p.Options)
		if err != nil {
			return resource.ApplyResult{}, &drivers.PackageError{Op: "InstallFailed", Names: p.Names, Wrapped: err}
		}
	}

	if !updated {
		return resource.NoUpdate(action, "already converged"), nil
	}
	return resource.Updated(action), nil
}

func (d *Driver) providerFor(name string) (provider, error) {
	switch name {
	case "apt":
		return &aptProvider{env: d.Env}, nil
	case "homebrew":
		return &homebrewProvider{}, nil
	case "docker":
		return &dockerProvider{}, nil
	case "":
		switch runtime.GOOS {
		case "linux":
			return &aptProvider{env: d.Env}, nil
		case "darwin":
			return &homebrewProvider{}, nil
		default:
			return nil, fmt.Errorf("pkgmanager: no default provider for GOOS %q", runtime.GOOS)
		}
	default:
		return nil, fmt.Errorf("pkgmanager: unknown provider %q", name)
	}
}
