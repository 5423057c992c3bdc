// Package modeparse parses the recipe-facing octal mode strings ("0644")
// that file/directory/link/template/remote_file all accept.
package modeparse

import (
	"fmt"
	"os"
	"strconv"
)

// Parse converts an octal mode string to os.FileMode. An empty string
// returns (0, false) so callers can tell "not specified" apart from
// "explicitly set to 0".
func Parse(mode string) (os.FileMode, bool, error) {
	if mode == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return 0, false, fmt.Errorf("modeparse: invalid mode %q: %w", mode, err)
	}
	return os.FileMode(n), true, nil
}

// Or returns parsed if ok, else fallback.
func Or(parsed os.FileMode, ok bool, fallback os.FileMode) os.FileMode {
	if ok {
		return parsed
	}
	return fallback
}
