package convergence

import (
	"fmt"

	"github.com/ratazzi/hola/resource"
)

// Preflight validates an entire ResourceList before any apply runs
//: every record must pass its own Validate, names
// must be unique, and every notification/subscription target must name a
// record that actually exists in the list. A single bad record fails the
// whole run rather than a partial apply.
func Preflight(records []*resource.Record) error {
	seen := make(map[resource.Name]*resource.Record, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("preflight: duplicate resource name %q", r.Name)
		}
		seen[r.Name] = r
	}
	for _, r := range records {
		for _, n := range r.Common.Notifications {
			if _, ok := seen[n.Target]; !ok {
				return fmt.Errorf("preflight: %s %q notifies unknown resource %q", r.Kind, r.Name, n.Target)
			}
		}
		for _, s := range r.Common.Subscriptions {
			if _, ok := seen[s.Source]; !ok {
				return fmt.Errorf("preflight: %s %q subscribes to unknown resource %q", r.Kind, r.Name, s.Source)
			}
		}
	}
	return nil
}
