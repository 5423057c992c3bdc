// Package hashutil provides content hashing used to compare downloaded
// bytes against checksums and to detect unchanged remote_file content.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	farm "github.com/dgryski/go-farm"
)

// Sha256Hex returns the hex-encoded sha256 digest of b. remote_file's
// checksum field is authoritative and compared with this digest; sha256 has
// no third-party implementation in the dependency set this engine draws
// from, so crypto/sha256 is used directly (a cryptographic checksum is a
// system-boundary concern, not one a non-cryptographic library can serve).
func Sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Key computes a stable hex digest of b, used by remote_file to detect
// whether fetched content differs from what is already on disk.
func Key(b []byte) string {
	lo, hi := farm.Hash128(b)
	return fmt.Sprintf("%016x%016x", lo, hi)
}

// Matches reports whether the checksum string supplied by a recipe author
// is non-empty and exactly equal to the given digest string (no case or
// encoding normalisation is applied). remote_file checksums are
// conventionally sha256 hex digests; callers pass the already-computed
// digest for comparison so this package stays hash-algorithm agnostic.
func Matches(want string, got string) bool {
	return want != "" && want == got
}
