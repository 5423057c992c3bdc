// Package drivers defines the common Driver interface every resource kind's
// apply implementation satisfies, and Set, the Kind-to-Driver table that
// cmd/hola fills with the concrete per-kind drivers (from this package's
// subpackages) so the scheduler can call by Kind without importing every
// subpackage itself.
package drivers

import (
	"context"

	"github.com/inconshreveable/log15"

	"github.com/ratazzi/hola/async"
	"github.com/ratazzi/hola/internal/config"
	"github.com/ratazzi/hola/resource"
	"github.com/ratazzi/hola/rp"
	"github.com/ratazzi/hola/script"
)

// Env bundles everything a driver needs beyond the record it's converging:
// a logger scoped to this apply, the async executor for offloading blocking
// work, the interpreter for invoking guard/block callables (ruby_block
// only — drivers must marshal interpreter calls back to the main
// goroutine), the engine-wide config, and the transport rate limiters
// shared across remote_file/git.
type Env struct {
	Logger      log15.Logger
	Executor    *async.Executor
	Interpreter script.Interpreter
	Config      *config.Config
	Limiters    *rp.TransportLimiters
}

// Driver implements one resource kind's idempotence protocol: diff current
// vs desired state, act if they differ, verify, and report what happened.
type Driver interface {
	// Apply converges rec to the given action (which may differ from the
	// record's own default action, for notification dispatch).
	Apply(ctx context.Context, env *Env, rec *resource.Record, action string) (resource.ApplyResult, error)
}

// Kind-specific driver errors, surfaced by the scheduler.
type (
	// CommandFailedError wraps a non-zero exit status from execute/git/package.
	CommandFailedError struct {
		Command  string
		ExitCode int
		Stderr   string
	}
	// CommandKilledError reports a signalled subprocess.
	CommandKilledError struct {
		Command string
		Signal  string
	}
	// PackageError reports a package-manager driver failure.
	PackageError struct {
		Op      string // InstallFailed, RemoveFailed, UpgradeFailed, CommandFailed
		Names   []string
		Wrapped error
	}
	// RubyBlockFailedError wraps a scripted block's returned error.
	RubyBlockFailedError struct {
		Name    string
		Wrapped error
	}
	// NotFoundError reports a missing remote object (package, git ref, KMS key).
	NotFoundError struct {
		What string
		Name string
	}
)

func (e *CommandFailedError) Error() string {
	return "command failed (exit " + itoa(e.ExitCode) + "): " + e.Command + ": " + e.Stderr
}

func (e *CommandKilledError) Error() string {
	return "command killed by signal " + e.Signal + ": " + e.Command
}

func (e *PackageError) Error() string {
	return e.Op + ": " + joinNames(e.Names) + ": " + e.Wrapped.Error()
}
func (e *PackageError) Unwrap() error { return e.Wrapped }

func (e *RubyBlockFailedError) Error() string {
	return "ruby_block " + e.Name + " failed: " + e.Wrapped.Error()
}
func (e *RubyBlockFailedError) Unwrap() error { return e.Wrapped }

func (e *NotFoundError) Error() string { return e.What + " not found: " + e.Name }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
