// Package atomicfile implements the engine's one writer primitive: every
// driver that mutates file content (file, remote_file, template, aws_kms)
// writes to a sibling temp file and renames it into place, so a crash never
// leaves a partially written file visible at the destination path.
package atomicfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ratazzi/hola/internal/idgen"
)

// Write atomically replaces path's content with data. It creates
// "<path>.tmp.<pid>.<nonce>" in path's directory, writes data, fsyncs, sets
// mode, then renames over path. If backupCount is greater than zero and
// path already exists, the prior content is rotated into path.1..path.N
// first (oldest dropped).
func Write(path string, data []byte, mode os.FileMode, backupCount int) (err error) {
	if backupCount > 0 {
		if _, statErr := os.Lstat(path); statErr == nil {
			if rotErr := rotateBackups(path, backupCount); rotErr != nil {
				return fmt.Errorf("rotating backups for %s: %w", path, rotErr)
			}
		}
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf("%s.tmp.%d.%s", filepath.Base(path), os.Getpid(), idgen.New()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, mode); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return err
	}
	return nil
}

// CopyAtomic streams src into path the same way Write does, for sources too
// large to buffer entirely in memory.
func CopyAtomic(path string, src io.Reader, mode os.FileMode, backupCount int) (err error) {
	if backupCount > 0 {
		if _, statErr := os.Lstat(path); statErr == nil {
			if rotErr := rotateBackups(path, backupCount); rotErr != nil {
				return fmt.Errorf("rotating backups for %s: %w", path, rotErr)
			}
		}
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf("%s.tmp.%d.%s", filepath.Base(path), os.Getpid(), idgen.New()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(f, src); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// rotateBackups shifts path.(N-1) -> path.N ... path -> path.1, dropping
// whatever previously occupied path.N.
func rotateBackups(path string, backupCount int) error {
	last := fmt.Sprintf("%s.%d", path, backupCount)
	if _, err := os.Lstat(last); err == nil {
		if err := os.Remove(last); err != nil {
			return err
		}
	}
	for i := backupCount - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", path, i)
		to := fmt.Sprintf("%s.%d", path, i+1)
		if _, err := os.Lstat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return err
			}
		}
	}
	return os.Rename(path, fmt.Sprintf("%s.1", path))
}
