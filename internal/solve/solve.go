// SPDX-License-Identifier: MPL-2.0

// Package solve provides the seam between this engine and the dependency
// solver. The real constraint-satisfaction algorithm is an external
// collaborator; PinningSolver is the deterministic stand-in that turns
// manifest specifiers directly into locked packages so that locking,
// installing and running work end to end.
package solve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"lockstep-cli/internal/lockfile"
	"lockstep-cli/internal/manifest"
	"lockstep-cli/internal/platform"
)

// DefaultChannel is used when the workspace declares no channels.
const DefaultChannel = "conda-forge"

// PinningSolver resolves every dependency specifier to its lowest admissible
// version without consulting any package index. The output is fully
// determined by the manifest, which keeps lock files reproducible.
type PinningSolver struct{}

// Solve builds a lock file covering every environment and platform the
// manifest declares.
func (PinningSolver) Solve(ctx context.Context, m *manifest.Manifest, manifestHash string) (*lockfile.LockFile, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("solve canceled: %w", ctx.Err())
	default:
	}

	channel := DefaultChannel
	if len(m.Workspace.Channels) > 0 {
		channel = m.Workspace.Channels[0]
	}

	b := lockfile.NewBuilder().WithManifestHash(manifestHash)
	for _, env := range m.EnvironmentNames() {
		b.AddEnvironment(env)

		platforms := m.Platforms(env)
		if len(platforms) == 0 {
			platforms = []platform.Platform{platform.Current()}
		}

		condaDeps := m.CondaDependencies(env)
		pypiDeps := m.PypiDependenciesOf(env)

		for _, plat := range platforms {
			for _, name := range sortedKeys(condaDeps) {
				version := PinVersion(condaDeps[name])
				build := "0"
				b.AddPackage(env, plat, &lockfile.CondaPackage{
					PackageName: lockfile.NormalizeCondaName(name),
					Version:     version,
					Build:       build,
					Channel:     channel,
					Loc: lockfile.LocationFromURL(fmt.Sprintf(
						"https://conda.anaconda.org/%s/%s/%s-%s-%s.conda",
						channel, plat, lockfile.NormalizeCondaName(name), version, build)),
				})
			}
			for _, name := range sortedKeys(pypiDeps) {
				version := PinVersion(pypiDeps[name])
				b.AddPackage(env, plat, &lockfile.PypiPackage{
					PackageName: name,
					Version:     version,
					Loc: lockfile.LocationFromURL(fmt.Sprintf(
						"https://files.pythonhosted.org/packages/%s/%s-%s-py3-none-any.whl",
						name, name, version)),
				})
			}
		}
	}
	return b.Finish(), nil
}

// PinVersion extracts the lowest admissible concrete version from a
// dependency specifier: the exact version of an equality pin, the lower
// bound of a range, or "0.1.0" when the specifier is open.
func PinVersion(spec string) string {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "" || spec == "*":
		return "0.1.0"
	case strings.HasPrefix(spec, "=="):
		return trimVersion(spec[2:])
	case strings.HasPrefix(spec, ">="):
		return trimVersion(spec[2:])
	case strings.HasPrefix(spec, "="):
		return trimVersion(spec[1:])
	case spec[0] >= '0' && spec[0] <= '9':
		return trimVersion(spec)
	default:
		// Upper-bound-only and other open specifiers pin the floor.
		return "0.1.0"
	}
}

// trimVersion cuts a version prefix at the first range separator and strips
// wildcard suffixes, e.g. ">=1.25,<2" yields "1.25" and "1.26.*" "1.26".
func trimVersion(s string) string {
	if i := strings.IndexAny(s, ", <>!"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), ".*")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
