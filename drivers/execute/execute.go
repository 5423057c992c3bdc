// Package execute implements the execute resource kind: runs Command
// through the configured shell, optionally under a dropped-privilege
// user/group, skipping entirely when Creates already exists, and
// streaming output live when LiveStream is set.
package execute

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/ratazzi/hola/async"
	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/envutil"
	"github.com/ratazzi/hola/internal/procio"
	"github.com/ratazzi/hola/resource"
)

// Driver converges resource.ExecuteProps records.
type Driver struct {
	Shell string
}

// New returns an execute Driver invoking commands through shell.
func New(shell string) *Driver { return &Driver{Shell: shell} }

func (d *Driver) Apply(ctx context.Context, env *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.Execute
	if action == "nothing" {
		return resource.NoUpdate(action, "action is nothing"), nil
	}

	if p.Creates != "" {
		if _, err := os.Lstat(p.Creates); err == nil {
			return resource.NoUpdate(action, fmt.Sprintf("creates path %s already exists", p.Creates)), nil
		}
	}

	label := "execute"
	handle := async.Run(env.Executor, label, func(ctx context.Context) (commandResult, error) {
		return d.run(ctx, p)
	})
	result, err := handle.Wait(ctx)
	if err != nil {
		return resource.ApplyResult{}, err
	}
	if result.signal != "" {
		return resource.ApplyResult{}, &drivers.CommandKilledError{Command: p.Command, Signal: result.signal}
	}
	if result.exitCode != 0 {
		return resource.ApplyResult{}, &drivers.CommandFailedError{Command: p.Command, ExitCode: result.exitCode, Stderr: result.stderrTail}
	}
	return resource.Updated(action), nil
}

type commandResult struct {
	exitCode   int
	signal     string
	stderrTail string
}

func (d *Driver) run(_ context.Context, p *resource.ExecuteProps) (commandResult, error) {
	cmd := exec.Command(d.Shell, "-c", p.Command)
	cmd.Dir = p.Cwd
	cmd.Env = envutil.Override(os.Environ(), p.EnvironmentPairs)

	if p.User != "" {
		cred, err := credentialFor(p.User, p.Group)
		if err != nil {
			return commandResult{}, err
		}
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
	}

	stderrTail := &procio.PrefixSuffixSaver{N: 32 * 1024}
	if p.LiveStream {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return commandResult{}, err
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return commandResult{}, err
		}
		if err := cmd.Start(); err != nil {
			return commandResult{}, err
		}
		outDone := procio.StdFilter(stdout, os.Stdout)
		errDone := procio.StdFilter(stderr, io.MultiWriter(os.Stderr, stderrTail))
		<-outDone
		<-errDone
		err = cmd.Wait()
		return resultFrom(cmd, stderrTail, err)
	}

	cmd.Stdout = &procio.PrefixSuffixSaver{N: 32 * 1024}
	cmd.Stderr = stderrTail
	err := cmd.Run()
	return resultFrom(cmd, stderrTail, err)
}

func resultFrom(cmd *exec.Cmd, stderrTail *procio.PrefixSuffixSaver, err error) (commandResult, error) {
	if err == nil {
		return commandResult{exitCode: 0}, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return commandResult{signal: status.Signal().String(), stderrTail: string(stderrTail.Bytes())}, nil
		}
		return commandResult{exitCode: exitErr.ExitCode(), stderrTail: string(stderrTail.Bytes())}, nil
	}
	return commandResult{}, err
}

func credentialFor(userName, groupName string) (*syscall.Credential, error) {
	u, err := user.Lookup(userName)
	if err != nil {
		return nil, fmt.Errorf("execute: looking up user %q: %w", userName, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, err
	}
	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return nil, fmt.Errorf("execute: looking up group %q: %w", groupName, err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return nil, err
		}
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
