package rp

import "fmt"

// ErrOverMaximumTokens is returned when a Request asks for more tokens than
// a Protector was configured to ever grant.
var ErrOverMaximumTokens = fmt.Errorf("requested more tokens than the maximum simultaneous allowed")

// Error is returned by Protector methods that can fail, identifying which
// Protector, which method, and (when relevant) which Receipt was involved.
type Error struct {
	Protector string
	Method    string
	Receipt   Receipt
	Err       error
}

func (e Error) Error() string {
	if e.Receipt != "" {
		return fmt.Sprintf("rp.Protector(%s).%s(%s): %s", e.Protector, e.Method, e.Receipt, e.Err)
	}
	return fmt.Sprintf("rp.Protector(%s).%s: %s", e.Protector, e.Method, e.Err)
}

func (e Error) Unwrap() error { return e.Err }
