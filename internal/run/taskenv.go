// SPDX-License-Identifier: MPL-2.0

package run

import (
	"maps"
	"slices"
	"strings"
)

// environToMap splits "KEY=VALUE" pairs into a map. Later duplicates win,
// matching how shells resolve a repeated variable.
func environToMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	return env
}

// envToSlice flattens a map back into sorted "KEY=VALUE" pairs. Sorting keeps
// the interpreter's view of the environment stable between runs.
func envToSlice(env map[string]string) []string {
	keys := slices.Sorted(maps.Keys(env))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	return out
}

// overlayEnv copies base and applies each overlay in order, later overlays
// overriding earlier ones.
func overlayEnv(base map[string]string, overlays ...map[string]string) map[string]string {
	merged := make(map[string]string, len(base))
	maps.Copy(merged, base)
	for _, overlay := range overlays {
		maps.Copy(merged, overlay)
	}
	return merged
}
