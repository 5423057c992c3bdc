package pkgmanager

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/ratazzi/hola/drivers"
)

// aptProvider drives dpkg-query (diff) and apt-get (act), forcing env onto
// every apt-get invocation so interactive prompts never block a recipe run.
type aptProvider struct {
	env map[string]string
}

func (a *aptProvider) install(ctx context.Context, names []string, version string, options []string) (bool, error) {
	missing := a.filterInstalled(names, false)
	if len(missing) == 0 {
		return false, nil
	}
	args := []string{"install", "-y"}
	args = append(args, options...)
	for _, n := range missing {
		if version != "" {
			args = append(args, n+"="+version)
		} else {
			args = append(args, n)
		}
	}
	return true, a.run(ctx, args...)
}

func (a *aptProvider) remove(ctx context.Context, names []string) (bool, error) {
	present := a.filterInstalled(names, true)
	if len(present) == 0 {
		return false, nil
	}
	args := append([]string{"remove", "-y"}, present...)
	return true, a.run(ctx, args...)
}

func (a *aptProvider) upgrade(ctx context.Context, names []string, options []string) (bool, error) {
	present := a.filterInstalled(names, true)
	if len(present) == 0 {
		return false, nil
	}
	args := []string{"install", "-y", "--only-upgrade"}
	args = append(args, options...)
	args = append(args, present...)
	return true, a.run(ctx, args...)
}

// filterInstalled returns the subset of names whose dpkg-query install
// status matches wantInstalled.
func (a *aptProvider) filterInstalled(names []string, wantInstalled bool) []string {
	var out []string
	for _, n := range names {
		installed := a.isInstalled(n)
		if installed == wantInstalled {
			out = append(out, n)
		}
	}
	return out
}

func (a *aptProvider) isInstalled(name string) bool {
	cmd := exec.Command("dpkg-query", "-W", "-f=${Status}", name)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return false
	}
	return strings.Contains(out.String(), "install ok installed")
}

func (a *aptProvider) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "apt-get", args...)
	cmd.Env = append(os.Environ(), envPairs(a.env)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &drivers.CommandFailedError{Command: "apt-get " + args[0], ExitCode: exitCode, Stderr: stderr.String()}
	}
	return nil
}

func envPairs(m map[string]string) []string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}
