// Package git implements the git resource kind by shelling out to the git
// CLI: clone into Destination (or fetch and hard-reset to the remote's
// branch), then reset to Revision, with sync re-running that whole
// sequence and checkout only
// switching an already-cloned tree to a different ref. No go-git-style
// library appears anywhere in the dependency set this engine draws from,
// so the CLI is the grounded choice here.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/ownership"
	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

// Driver converges resource.GitProps records.
type Driver struct{}

// New returns a git Driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Apply(ctx context.Context, env *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.Git
	dest, err := pathutil.Expand(string(p.Destination))
	if err != nil {
		return resource.ApplyResult{}, err
	}

	limiter := env.Limiters.ForURL(p.Repository)
	receipt, err := limiter.Request(1)
	if err != nil {
		return resource.ApplyResult{}, err
	}
	limiter.WaitUntilGranted(receipt)
	defer limiter.Release(receipt)

	switch action {
	case "checkout":
		return d.checkout(ctx, dest, p, action)
	default: // "sync"
		return d.sync(ctx, dest, p, action)
	}
}

func (d *Driver) sync(ctx context.Context, dest string, p *resource.GitProps, action string) (resource.ApplyResult, error) {
	_, statErr := os.Stat(dest + "/.git")
	updated := false
	initial := ""

	if os.IsNotExist(statErr) {
		args := []string{"clone"}
		if p.Depth > 0 {
			args = append(args, "--depth", itoa(p.Depth))
		}
		if p.CheckoutBranch != "" {
			args = append(args, "--branch", p.CheckoutBranch)
		}
		args = append(args, p.Repository, dest)
		if err := run(ctx, "", args...); err != nil {
			return resource.ApplyResult{}, err
		}
		updated = true
	} else {
		before, err := revParse(ctx, dest, "HEAD")
		if err != nil {
			return resource.ApplyResult{}, err
		}
		initial = before
		remote := p.Remote
		if remote == "" {
			remote = "origin"
		}
		if err := run(ctx, dest, "fetch", remote); err != nil {
			return resource.ApplyResult{}, err
		}
		upstream := remote + "/HEAD"
		if p.CheckoutBranch != "" {
			upstream = remote + "/" + p.CheckoutBranch
		}
		if err := run(ctx, dest, "reset", "--hard", upstream); err != nil {
			return resource.ApplyResult{}, err
		}
	}

	if p.Revision != "" {
		if err := run(ctx, dest, "reset", "--hard", p.Revision); err != nil {
			return resource.ApplyResult{}, err
		}
	}
	if initial != "" {
		after, err := revParse(ctx, dest, "HEAD")
		if err != nil {
			return resource.ApplyResult{}, err
		}
		updated = after != initial
	}

	if p.EnableSubmodules {
		if err := run(ctx, dest, "submodule", "update", "--init", "--recursive"); err != nil {
			return resource.ApplyResult{}, err
		}
	}

	if p.User != "" || p.Group != "" {
		if err := ownership.Chown(dest, p.User, p.Group); err != nil {
			return resource.ApplyResult{}, err
		}
	}

	if !updated {
		return resource.NoUpdate(action, "already at target revision"), nil
	}
	return resource.Updated(action), nil
}

func (d *Driver) checkout(ctx context.Context, dest string, p *resource.GitProps, action string) (resource.ApplyResult, error) {
	if _, err := os.Stat(dest + "/.git"); os.IsNotExist(err) {
		return resource.ApplyResult{}, &drivers.NotFoundError{What: "git working tree", Name: dest}
	}
	before, err := revParse(ctx, dest, "HEAD")
	if err != nil {
		return resource.ApplyResult{}, err
	}
	ref := p.Revision
	if ref == "" {
		ref = p.CheckoutBranch
	}
	if err := run(ctx, dest, "checkout", ref); err != nil {
		return resource.ApplyResult{}, err
	}
	after, err := revParse(ctx, dest, "HEAD")
	if err != nil {
		return resource.ApplyResult{}, err
	}
	if before == after {
		return resource.NoUpdate(action, "already on "+ref), nil
	}
	return resource.Updated(action), nil
}

func revParse(ctx context.Context, dest, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dest, "rev-parse", ref)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git rev-parse %s: %w", ref, err)
	}
	return out.String(), nil
}

func run(ctx context.Context, dir string, args ...string) error {
	var cmdArgs []string
	if dir != "" {
		cmdArgs = append([]string{"-C", dir}, args...)
	} else {
		cmdArgs = args
	}
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &drivers.CommandFailedError{Command: "git " + args[0], ExitCode: exitCode, Stderr: stderr.String()}
	}
	return nil
}

func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}
