package convergence

import (
	"bytes"
	"os/exec"

	"github.com/ratazzi/hola/resource"
	"github.com/ratazzi/hola/script"
)

// evalGuard runs g (a shell command or scripted callable) and reports
// whether its condition held. An empty guard always holds.
func evalGuard(shell string, interp script.Interpreter, g resource.Guard) (bool, error) {
	if g.Empty() {
		return true, nil
	}
	if g.Callable != nil {
		return interp.InvokeGuard(g.Callable)
	}
	cmd := exec.Command(shell, "-c", g.Command)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return false, nil
	}
	return false, err
}

// shouldApply combines only_if/not_if: only_if must hold (or be absent),
// and not_if must not hold (or be absent), for a record's apply to proceed.
func shouldApply(shell string, interp script.Interpreter, c resource.CommonProps) (bool, string, error) {
	if !c.OnlyIf.Empty() {
		ok, err := evalGuard(shell, interp, c.OnlyIf)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, "only_if guard false", nil
		}
	}
	if !c.NotIf.Empty() {
		ok, err := evalGuard(shell, interp, c.NotIf)
		if err != nil {
			return false, "", err
		}
		if ok {
			return false, "not_if guard true", nil
		}
	}
	return true, "", nil
}
