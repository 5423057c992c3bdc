// Package systemdunit implements the systemd_unit resource kind: writes a
// unit file, optionally verifies it with systemd-analyze, and runs an
// ordered sequence of systemctl actions.
package systemdunit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/atomicfile"
	"github.com/ratazzi/hola/resource"
)

const unitDir = "/etc/systemd/system"
const unitMode = os.FileMode(0o644)

// Driver converges resource.SystemdUnitProps records.
type Driver struct{}

// New returns a systemd_unit Driver.
func New() *Driver { return &Driver{} }

// Apply walks the record's own Actions sequence when the scheduler-supplied
// action is empty or the record's default action; any other action (such
// as one named by a notification) runs alone in place of the sequence.
func (d *Driver) Apply(_ context.Context, _ *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.SystemdUnit
	path := filepath.Join(unitDir, p.UnitName)

	actions := p.Actions
	if action != "" && action != rec.DefaultAction() {
		actions = []string{action}
	}

	updated := false
	for _, a := range actions {
		changed, err := d.applyOne(path, p, a)
		if err != nil {
			return resource.ApplyResult{}, err
		}
		updated = updated || changed
	}
	if !updated {
		return resource.NoUpdate(action, "no unit action changed state"), nil
	}
	return resource.Updated(action), nil
}

func (d *Driver) applyOne(path string, p *resource.SystemdUnitProps, action string) (bool, error) {
	switch action {
	case "create":
		return d.writeUnit(path, p)
	case "delete":
		return d.deleteUnit(path)
	case "enable", "disable", "start", "stop", "restart", "reload":
		return true, runSystemctl(action, p.UnitName)
	default:
		return false, fmt.Errorf("systemd_unit %s: unknown action %q", p.UnitName, action)
	}
}

func (d *Driver) writeUnit(path string, p *resource.SystemdUnitProps) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, []byte(p.Content)) {
		return false, nil
	}
	if p.Verify {
		if err := verifyUnit(p.Content); err != nil {
			return false, fmt.Errorf("systemd_unit %s: %w", p.UnitName, err)
		}
	}
	if err := atomicfile.Write(path, []byte(p.Content), unitMode, 0); err != nil {
		return false, err
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) deleteUnit(path string) (bool, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, runSystemctl("daemon-reload")
}

func verifyUnit(content string) error {
	tmp, err := os.CreateTemp("", "hola-unit-*.service")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	cmd := exec.Command("systemd-analyze", "verify", tmp.Name())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &drivers.CommandFailedError{Command: "systemd-analyze verify", Stderr: stderr.String()}
	}
	return nil
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &drivers.CommandFailedError{Command: "systemctl " + args[0], ExitCode: exitCode, Stderr: stderr.String()}
	}
	return nil
}
