// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	goversion "github.com/hashicorp/go-version"
)

// ErrInvalidSpec is the sentinel error wrapped by InvalidSpecError.
var ErrInvalidSpec = errors.New("invalid match spec")

type (
	// MatchSpec is a parsed constraint over conda package attributes. Only
	// the name is required; version range, build glob and channel are
	// optional and act as wildcards when absent.
	//
	// Build one with ParseMatchSpec (lenient string form) or populate the
	// exported fields directly when the constraint is already structured;
	// the two construction paths are deliberately separate functions rather
	// than a single polymorphic entry point.
	MatchSpec struct {
		// Name is the required, normalized package name.
		Name string
		// Channel optionally constrains the source channel. The package
		// side may be a full channel URL; matching compares the trailing
		// segment.
		Channel string

		version    goversion.Constraints
		rawVersion string
		build      glob.Glob
		rawBuild   string
	}

	// InvalidSpecError is returned when a spec string has no parseable
	// package name. It wraps ErrInvalidSpec for errors.Is().
	InvalidSpecError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid match spec %q: no package name", e.Value)
}

// Unwrap returns ErrInvalidSpec so callers can use errors.Is.
func (e *InvalidSpecError) Unwrap() error { return ErrInvalidSpec }

// specNameRe matches the leading package name of a spec string.
var specNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// ParseMatchSpec parses a spec string of the loose form
//
//	[channel::]name[version-constraint][ build-glob]
//
// e.g. "numpy", "numpy>=1.25,<2", "conda-forge::numpy ==1.26.0 py311*".
// Parsing is lenient: a malformed version constraint or build pattern is
// dropped rather than failing the parse. Only a missing or unparseable
// package name is an error.
func ParseMatchSpec(s string) (MatchSpec, error) {
	var spec MatchSpec

	rest := strings.TrimSpace(s)
	if channel, after, ok := strings.Cut(rest, "::"); ok {
		spec.Channel = strings.TrimSpace(channel)
		rest = after
	}

	name := specNameRe.FindString(rest)
	if name == "" {
		return MatchSpec{}, &InvalidSpecError{Value: s}
	}
	spec.Name = NormalizeCondaName(name)
	rest = strings.TrimSpace(rest[len(name):])
	if rest == "" {
		return spec, nil
	}

	// Conda's dense "=version=build" form.
	if strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==") {
		if ver, build, ok := strings.Cut(rest[1:], "="); ok {
			spec.setVersion("=" + ver)
			spec.setBuild(build)
			return spec, nil
		}
	}

	fields := strings.Fields(rest)
	spec.setVersion(fields[0])
	if len(fields) > 1 {
		spec.setBuild(fields[1])
	}
	return spec, nil
}

// setVersion installs a version constraint, silently dropping it when the
// text does not parse (lenient semantics).
func (s *MatchSpec) setVersion(raw string) {
	normalized := strings.ReplaceAll(raw, "==", "=")
	constraints, err := goversion.NewConstraint(normalized)
	if err != nil {
		return
	}
	s.version = constraints
	s.rawVersion = raw
}

// setBuild installs a build-string glob, silently dropping it when the
// pattern does not compile (lenient semantics).
func (s *MatchSpec) setBuild(raw string) {
	g, err := glob.Compile(raw)
	if err != nil {
		return
	}
	s.build = g
	s.rawBuild = raw
}

// versionMatches reports whether a package version string falls inside the
// spec's version constraint. Unparseable package versions never match.
func (s MatchSpec) versionMatches(pkgVersion string) bool {
	v, err := goversion.NewVersion(pkgVersion)
	if err != nil {
		return false
	}
	return s.version.Check(v)
}

// HasVersion reports whether the spec carries a version constraint.
func (s MatchSpec) HasVersion() bool { return s.version != nil }

// HasBuild reports whether the spec carries a build-string pattern.
func (s MatchSpec) HasBuild() bool { return s.build != nil }

// String reconstructs a canonical spec string.
func (s MatchSpec) String() string {
	var b strings.Builder
	if s.Channel != "" {
		b.WriteString(s.Channel)
		b.WriteString("::")
	}
	b.WriteString(s.Name)
	if s.rawVersion != "" {
		b.WriteString(s.rawVersion)
	}
	if s.rawBuild != "" {
		b.WriteString(" ")
		b.WriteString(s.rawBuild)
	}
	return b.String()
}
