// Package directory implements the directory resource kind: create (with
// optional recursive parent creation) and delete (recursive or not),
// idempotent on mode/owner/group.
package directory

import (
	"context"
	"os"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/modeparse"
	"github.com/ratazzi/hola/internal/ownership"
	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

const defaultMode = os.FileMode(0o755)

// Driver converges resource.DirectoryProps records.
type Driver struct{}

// New returns a directory Driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Apply(_ context.Context, _ *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.Directory
	path, err := pathutil.Expand(string(p.Path))
	if err != nil {
		return resource.ApplyResult{}, err
	}

	if action == "delete" {
		return d.delete(path, p, action)
	}
	return d.create(path, p, action)
}

func (d *Driver) create(path string, p *resource.DirectoryProps, action string) (resource.ApplyResult, error) {
	mode, hasMode, err := modeparse.Parse(p.Mode)
	if err != nil {
		return resource.ApplyResult{}, err
	}
	useMode := modeparse.Or(mode, hasMode, defaultMode)

	info, statErr := os.Stat(path)
	existed := statErr == nil
	if existed && !info.IsDir() {
		return resource.ApplyResult{}, &notADirectoryError{path}
	}

	updated := false
	if !existed {
		if p.Recursive {
			err = os.MkdirAll(path, useMode)
		} else {
			err = os.Mkdir(path, useMode)
		}
		if err != nil {
			return resource.ApplyResult{}, err
		}
		updated = true
	} else if hasMode && info.Mode().Perm() != useMode.Perm() {
		if err := os.Chmod(path, useMode); err != nil {
			return resource.ApplyResult{}, err
		}
		updated = true
	}

	if p.Owner != "" || p.Group != "" {
		diverges, err := ownership.Diverges(path, p.Owner, p.Group)
		if err != nil {
			return resource.ApplyResult{}, err
		}
		if diverges {
			if err := ownership.Chown(path, p.Owner, p.Group); err != nil {
				return resource.ApplyResult{}, err
			}
			updated = true
		}
	}

	if !updated {
		return resource.NoUpdate(action, "already converged"), nil
	}
	return resource.Updated(action), nil
}

func (d *Driver) delete(path string, p *resource.DirectoryProps, action string) (resource.ApplyResult, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return resource.NoUpdate(action, "already absent"), nil
	}
	if err != nil {
		return resource.ApplyResult{}, err
	}
	if p.Recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	_ = info
	if err != nil {
		return resource.ApplyResult{}, err
	}
	return resource.Updated(action), nil
}

type notADirectoryError struct{ path string }

func (e *notADirectoryError) Error() string { return e.path + " exists and is not a directory" }
