// Package file implements the file resource kind: create/create_if_missing
// writes exact byte content atomically, touch only ensures existence and
// mtime, delete removes.
package file

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/atomicfile"
	"github.com/ratazzi/hola/internal/modeparse"
	"github.com/ratazzi/hola/internal/ownership"
	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

const defaultMode = os.FileMode(0o644)

// Driver converges resource.FileProps records.
type Driver struct {
	DefaultBackupCount int
}

// New returns a file Driver using defaultBackupCount when a record leaves
// Backup unset.
func New(defaultBackupCount int) *Driver { return &Driver{DefaultBackupCount: defaultBackupCount} }

func (d *Driver) Apply(_ context.Context, _ *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.File
	path, err := pathutil.Expand(string(p.Path))
	if err != nil {
		return resource.ApplyResult{}, err
	}

	switch action {
	case "delete":
		return d.delete(path, action)
	case "touch":
		return d.touch(path, p, action)
	case "create_if_missing":
		if _, statErr := os.Lstat(path); statErr == nil {
			return resource.NoUpdate(action, "already exists"), nil
		}
		return d.write(path, p, action)
	default: // "create"
		return d.write(path, p, action)
	}
}

func (d *Driver) write(path string, p *resource.FileProps, action string) (resource.ApplyResult, error) {
	mode, hasMode, err := modeparse.Parse(p.Mode)
	if err != nil {
		return resource.ApplyResult{}, err
	}

	existing, readErr := os.ReadFile(path)
	contentSame := readErr == nil && bytesEqual(existing, p.Content)

	var info os.FileInfo
	modeSame := !hasMode
	if !hasMode {
		modeSame = true
		if st, statErr := os.Lstat(path); statErr == nil {
			info = st
		}
	} else if st, statErr := os.Lstat(path); statErr == nil {
		info = st
		modeSame = st.Mode().Perm() == mode.Perm()
	}

	ownerDiverges := false
	if p.Owner != "" || p.Group != "" {
		diverges, err := ownership.Diverges(path, p.Owner, p.Group)
		if err != nil {
			return resource.ApplyResult{}, err
		}
		ownerDiverges = diverges
	}
	if contentSame && modeSame && !ownerDiverges {
		return resource.NoUpdate(action, "content and mode unchanged"), nil
	}

	updated := false
	if !contentSame || !modeSame {
		useMode := modeparse.Or(mode, hasMode, defaultMode)
		if !hasMode && info != nil {
			useMode = info.Mode().Perm()
		}
		backup := p.Backup
		if backup == 0 {
			backup = d.DefaultBackupCount
		}
		if err := atomicfile.Write(path, p.Content, useMode, backup); err != nil {
			return resource.ApplyResult{}, fmt.Errorf("file %s: %w", path, err)
		}
		updated = true
	}
	if ownerDiverges {
		if err := ownership.Chown(path, p.Owner, p.Group); err != nil {
			return resource.ApplyResult{}, err
		}
		updated = true
	}
	if !updated {
		return resource.NoUpdate(action, "content and mode unchanged"), nil
	}
	return resource.Updated(action), nil
}

func (d *Driver) touch(path string, p *resource.FileProps, action string) (resource.ApplyResult, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		if err := atomicfile.Write(path, nil, defaultMode, 0); err != nil {
			return resource.ApplyResult{}, err
		}
		return resource.Updated(action), nil
	} else if err != nil {
		return resource.ApplyResult{}, err
	}
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return resource.ApplyResult{}, err
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

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
