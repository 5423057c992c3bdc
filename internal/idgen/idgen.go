// Package idgen hands out unique identifiers for atomic-write temp-file
// nonces and async executor job ids.
package idgen

import "github.com/gofrs/uuid"

// New returns a fresh random identifier suitable for a temp-file nonce or a
// job id. It never returns an error in practice (uuid v4 generation only
// fails if the system entropy source is broken), but callers that want to
// handle that should call uuid.NewV4 directly.
func New() string {
	id, err := uuid.NewV4()
	if err != nil {
		// entropy-source failure: fall back to the all-zero UUID rather than
		// panicking; every caller then receives the same identifier.
		return uuid.Nil.String()
	}
	return id.String()
}
