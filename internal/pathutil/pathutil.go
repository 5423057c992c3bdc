// Package pathutil resolves recipe-supplied paths to the absolute,
// tilde-expanded, symlink-resolved form that every path-bearing resource
// field must carry no later than registration time.
package pathutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Expand turns a recipe path into an absolute path: it expands a leading
// "~" or "~user" to the relevant home directory, then cleans the result.
// It does not require the path to exist.
func Expand(path string) (string, error) {
	expanded, err := tildaToHome(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(expanded) {
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return "", err
		}
		expanded = abs
	}
	return filepath.Clean(expanded), nil
}

// Resolve expands the path like Expand, and additionally resolves symlinks
// in any existing leading portion of the path, so that two recipe
// declarations which reach the same file via different symlinks compare
// equal. If the path (or none of its parents) exists yet, the expanded
// form is returned unresolved.
func Resolve(path string) (string, error) {
	expanded, err := Expand(path)
	if err != nil {
		return "", err
	}

	dir := expanded
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return expanded, nil
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
	}
}

// tildaToHome expands a leading "~" or "~username" to the relevant home
// directory, leaving the rest of the path untouched.
func tildaToHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	rest := path[1:]
	var home string
	if rest == "" || strings.HasPrefix(rest, "/") {
		u, err := user.Current()
		if err != nil {
			return "", err
		}
		home = u.HomeDir
	} else {
		sep := strings.IndexRune(rest, '/')
		name := rest
		if sep >= 0 {
			name = rest[:sep]
			rest = rest[sep:]
		} else {
			rest = ""
		}
		u, err := user.Lookup(name)
		if err != nil {
			return "", err
		}
		home = u.HomeDir
	}

	return filepath.Join(home, rest), nil
}
