package pkgmanager

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/ratazzi/hola/drivers"
)

// homebrewProvider drives brew list (diff) and brew install/uninstall/
// upgrade (act).
type homebrewProvider struct{}

func (h *homebrewProvider) install(ctx context.Context, names []string, version string, options []string) (bool, error) {
	missing := h.filterInstalled(names, false)
	if len(missing) == 0 {
		return false, nil
	}
	formulae := missing
	if version != "" && len(missing) == 1 {
		formulae = []string{missing[0] + "@" + version}
	}
	args := append([]string{"install"}, options...)
	args = append(args, formulae...)
	return true, h.run(ctx, args...)
}

func (h *homebrewProvider) remove(ctx context.Context, names []string) (bool, error) {
	present := h.filterInstalled(names, true)
	if len(present) == 0 {
		return false, nil
	}
	return true, h.run(ctx, append([]string{"uninstall"}, present...)...)
}

func (h *homebrewProvider) upgrade(ctx context.Context, names []string, options []string) (bool, error) {
	present := h.filterInstalled(names, true)
	if len(present) == 0 {
		return false, nil
	}
	args := append([]string{"upgrade"}, options...)
	args = append(args, present...)
	return true, h.run(ctx, args...)
}

func (h *homebrewProvider) filterInstalled(names []string, wantInstalled bool) []string {
	var out []string
	for _, n := range names {
		installed := h.isInstalled(n)
		if installed == wantInstalled {
			out = append(out, n)
		}
	}
	return out
}

func (h *homebrewProvider) isInstalled(name string) bool {
	cmd := exec.Command("brew", "list", "--versions", name)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return false
	}
	return strings.TrimSpace(out.String()) != ""
}

func (h *homebrewProvider) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "brew", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &drivers.CommandFailedError{Command: "brew " + args[0], ExitCode: exitCode, Stderr: stderr.String()}
	}
	return nil
}
