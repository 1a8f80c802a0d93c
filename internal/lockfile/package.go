// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"slices"
	"strings"
)

type (
	// Package is the tagged union over the two locked-package variants.
	// The only implementations are *CondaPackage and *PypiPackage; callers
	// discriminate with a type switch or assertion.
	Package interface {
		// Name returns the package name as stored (normalized for conda,
		// verbatim for pypi).
		Name() string
		// Location returns where the package contents come from.
		Location() Location

		lockedPackage()
	}

	// CondaPackage is a locked binary package from a conda-style channel.
	CondaPackage struct {
		// PackageName is stored in normalized form (see NormalizeCondaName).
		PackageName string
		Version     string
		Build       string
		Channel     string
		Loc         Location
	}

	// PypiPackage is a locked language package from a PyPI-style registry.
	PypiPackage struct {
		PackageName string
		Version     string
		Extras      []string
		Loc         Location
	}
)

// NormalizeCondaName lowers a conda package name into its normalized form.
// Conda names are case-insensitive; the lock file stores them lowercased.
func NormalizeCondaName(name string) string {
	return strings.ToLower(name)
}

// NormalizePypiName canonicalizes a pypi distribution name per PEP 503:
// lowercase, with runs of "-", "_" and "." collapsed to a single "-".
// Used by requirement matching; the lock file stores pypi names verbatim.
func NormalizePypiName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !prevSep {
				b.WriteByte('-')
			}
			prevSep = true
			continue
		}
		prevSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// Name returns the normalized conda package name.
func (p *CondaPackage) Name() string { return NormalizeCondaName(p.PackageName) }

// Location returns the package source location.
func (p *CondaPackage) Location() Location { return p.Loc }

func (p *CondaPackage) lockedPackage() {}

// Satisfies reports whether the package matches every constraint the spec
// carries. Absent spec fields are wildcards.
func (p *CondaPackage) Satisfies(spec MatchSpec) bool {
	if spec.Name != p.Name() {
		return false
	}
	if spec.version != nil && !spec.versionMatches(p.Version) {
		return false
	}
	if spec.build != nil && !spec.build.Match(p.Build) {
		return false
	}
	if spec.Channel != "" && !channelMatches(spec.Channel, p.Channel) {
		return false
	}
	return true
}

// channelMatches compares a spec channel against a package channel. The
// package side may carry a full channel URL while the spec names only the
// trailing channel segment.
func channelMatches(spec, pkg string) bool {
	if spec == pkg {
		return true
	}
	return strings.HasSuffix(strings.TrimSuffix(pkg, "/"), "/"+spec)
}

// Name returns the pypi package name exactly as locked.
func (p *PypiPackage) Name() string { return p.PackageName }

// Location returns the package source location.
func (p *PypiPackage) Location() Location { return p.Loc }

func (p *PypiPackage) lockedPackage() {}

// Satisfies reports whether the package matches the requirement's name,
// version specifier and extras. Environment markers are not evaluated here;
// the solver already applied them when the package was locked.
func (p *PypiPackage) Satisfies(req Requirement) bool {
	if req.Name != NormalizePypiName(p.PackageName) {
		return false
	}
	if !req.specifierMatches(p.Version) {
		return false
	}
	for _, extra := range req.Extras {
		if !slices.Contains(p.Extras, extra) {
			return false
		}
	}
	return true
}
