// Package envutil manipulates process environment pair lists, the form
// recipe authors supply for add_execute's environment_pairs and
// add_ruby_block's environment_pairs fields.
package envutil

import "strings"

// Override merges override on top of orig, both in "KEY=VALUE" form, and
// returns the merged slice. Keys present in override replace the value from
// orig; keys only in override are appended. orig is not mutated in place
// beyond what's returned.
func Override(orig []string, override []string) []string {
	replacements := make(map[string]string, len(override))
	for _, pair := range override {
		k, _ := split(pair)
		replacements[k] = pair
	}

	env := make([]string, len(orig))
	copy(env, orig)
	for i, pair := range env {
		k, _ := split(pair)
		if replace, ok := replacements[k]; ok {
			env[i] = replace
			delete(replacements, k)
		}
	}

	for _, pair := range override {
		k, _ := split(pair)
		if replace, ok := replacements[k]; ok && replace == pair {
			env = append(env, pair)
			delete(replacements, k)
		}
	}
	return env
}

// ToMap parses a "KEY=VALUE" pair list into a map, for callers (such as
// ruby_block's setenv/restore protocol) that need to inspect individual
// keys rather than the raw pair slice.
func ToMap(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v := split(pair)
		m[k] = v
	}
	return m
}

func split(pair string) (key, value string) {
	if idx := strings.IndexByte(pair, '='); idx >= 0 {
		return pair[:idx], pair[idx+1:]
	}
	return pair, ""
}
