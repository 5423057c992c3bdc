// Package ownership resolves owner/group names to numeric ids and applies
// them, the one piece of every file-like driver (file, directory, link,
// remote_file, template, execute's dropped-privilege user) that has to
// touch the OS user database.
package ownership

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// Resolve looks up owner and group (each may be a name or a numeric
// string, or empty to mean "leave unresolved") and returns their numeric
// ids. A -1 result for either means "don't change this one".
func Resolve(owner, group string) (uid, gid int, err error) {
	uid, err = resolveUID(owner)
	if err != nil {
		return 0, 0, err
	}
	gid, err = resolveGID(group)
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}

// Chown applies owner/group to path, skipping the call entirely if both
// resolve to "unchanged" (-1, -1), so a record that doesn't specify
// ownership never needs CAP_CHOWN.
func Chown(path, owner, group string) error {
	uid, gid, err := Resolve(owner, group)
	if err != nil {
		return err
	}
	if uid == -1 && gid == -1 {
		return nil
	}
	return syscall.Chown(path, uid, gid)
}

// Diverges reports whether path's current owner/group differs from owner
// and group (each resolved the same way Resolve does). Empty owner/group
// never diverge, so a record that doesn't specify ownership is always
// reported unchanged.
func Diverges(path, owner, group string) (bool, error) {
	uid, gid, err := Resolve(owner, group)
	if err != nil {
		return false, err
	}
	if uid == -1 && gid == -1 {
		return false, nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true, nil
	}
	if uid != -1 && int(sys.Uid) != uid {
		return true, nil
	}
	if gid != -1 && int(sys.Gid) != gid {
		return true, nil
	}
	return false, nil
}

func resolveUID(owner string) (int, error) {
	if owner == "" {
		return -1, nil
	}
	if n, err := strconv.Atoi(owner); err == nil {
		return n, nil
	}
	u, err := user.Lookup(owner)
	if err != nil {
		return -1, fmt.Errorf("ownership: looking up user %q: %w", owner, err)
	}
	return strconv.Atoi(u.Uid)
}

func resolveGID(group string) (int, error) {
	if group == "" {
		return -1, nil
	}
	if n, err := strconv.Atoi(group); err == nil {
		return n, nil
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return -1, fmt.Errorf("ownership: looking up group %q: %w", group, err)
	}
	return strconv.Atoi(g.Gid)
}
