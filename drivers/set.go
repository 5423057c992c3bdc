package drivers

import (
	"fmt"

	"github.com/ratazzi/hola/resource"
)

// Set is the simplest Dispatcher: a fixed table from Kind to the concrete
// Driver that handles it, built once at startup by cmd/hola wiring each
// drivers/<kind> package's constructor together.
type Set struct {
	byKind map[resource.Kind]Driver
}

// NewSet builds a Set from an explicit Kind->Driver table. Passing a kind
// with a nil Driver is a caller bug and panics immediately, rather than
// surfacing as a confusing runtime error mid-apply.
func NewSet(byKind map[resource.Kind]Driver) *Set {
	for k, d := range byKind {
		if d == nil {
			panic(fmt.Sprintf("drivers: nil Driver registered for kind %q", k))
		}
	}
	return &Set{byKind: byKind}
}

// DriverFor implements convergence.Dispatcher.
func (s *Set) DriverFor(kind resource.Kind) (Driver, error) {
	d, ok := s.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("drivers: no driver registered for kind %q", kind)
	}
	return d, nil
}
