// Package link implements the link resource kind: a symlink at Path
// pointing at Target, create/delete, idempotent on target and ownership.
package link

import (
	"context"
	"os"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/ownership"
	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

// Driver converges resource.LinkProps records.
type Driver struct{}

// New returns a link Driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Apply(_ context.Context, _ *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.Link
	path, err := pathutil.Expand(string(p.Path))
	if err != nil {
		return resource.ApplyResult{}, err
	}

	if action == "delete" {
		return d.delete(path, action)
	}
	return d.create(path, p, action)
}

func (d *Driver) create(path string, p *resource.LinkProps, action string) (resource.ApplyResult, error) {
	existing, err := os.Readlink(path)
	updated := false
	switch {
	case err == nil && existing == p.Target:
		// already points at the right target
	case err == nil:
		if rmErr := os.Remove(path); rmErr != nil {
			return resource.ApplyResult{}, rmErr
		}
		if symErr := os.Symlink(p.Target, path); symErr != nil {
			return resource.ApplyResult{}, symErr
		}
		updated = true
	default:
		if _, statErr := os.Lstat(path); statErr == nil {
			return resource.ApplyResult{}, &notASymlinkError{path}
		}
		if symErr := os.Symlink(p.Target, path); symErr != nil {
			return resource.ApplyResult{}, symErr
		}
		updated = true
	}

	if p.Owner != "" || p.Group != "" {
		if chErr := lchown(path, p.Owner, p.Group); chErr != nil {
			return resource.ApplyResult{}, chErr
		}
	}

	if !updated {
		return resource.NoUpdate(action, "target unchanged"), nil
	}
	return resource.Updated(action), nil
}

func (d *Driver) delete(path, action string) (resource.ApplyResult, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return resource.NoUpdate(action, "already absent"), nil
	}
	if err := os.Remove(path); err != nil {
		return resource.ApplyResult{}, err
	}
	return resource.Updated(action), nil
}

// lchown applies ownership to the link itself rather than its target;
// ownership.Chown follows symlinks, which would be wrong here.
func lchown(path, owner, group string) error {
	uid, gid, err := ownership.Resolve(owner, group)
	if err != nil {
		return err
	}
	if uid == -1 && gid == -1 {
		return nil
	}
	return os.Lchown(path, uid, gid)
}

type notASymlinkError struct{ path string }

func (e *notASymlinkError) Error() string { return e.path + " exists and is not a symlink" }
