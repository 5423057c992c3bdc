// Package rubyblock implements the ruby_block resource kind: invokes the
// record's scripted callable on the main goroutine, with its
// EnvironmentPairs applied to the process environment for the callable's
// duration and restored afterward.
package rubyblock

import (
	"context"
	"os"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/envutil"
	"github.com/ratazzi/hola/resource"
)

// Driver converges resource.RubyBlockProps records by invoking their
// callable through the interpreter supplied in drivers.Env.
type Driver struct{}

// New returns a ruby_block Driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Apply(_ context.Context, env *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.RubyBlock
	if action == "nothing" {
		return resource.NoUpdate(action, "action is nothing"), nil
	}

	var restore func()
	if len(p.EnvironmentPairs) > 0 {
		restore = setenv(p.EnvironmentPairs)
		defer restore()
	}

	if err := env.Interpreter.InvokeBlock(p.Callable); err != nil {
		return resource.ApplyResult{}, &drivers.RubyBlockFailedError{Name: string(rec.Name), Wrapped: err}
	}
	// A ruby_block's side effects are opaque to the engine; running it
	// successfully always counts as an update.
	return resource.Updated(action), nil
}

// setenv applies pairs to the process environment and returns a closure
// that restores whatever was there before (or unsets keys that didn't
// exist), a save/restore pattern for scoped environment mutation.
func setenv(pairs []string) func() {
	prior := make(map[string]string, len(pairs))
	hadPrior := make(map[string]bool, len(pairs))
	for k := range envutil.ToMap(pairs) {
		if v, ok := os.LookupEnv(k); ok {
			prior[k] = v
			hadPrior[k] = true
		}
	}
	for k, v := range envutil.ToMap(pairs) {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range envutil.ToMap(pairs) {
			if hadPrior[k] {
				_ = os.Setenv(k, prior[k])
			} else {
				_ = os.Unsetenv(k)
			}
		}
	}
}
