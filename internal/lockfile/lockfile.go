// SPDX-License-Identifier: MPL-2.0

// Package lockfile holds the in-memory model of a resolved, multi-environment,
// multi-platform package set together with the point queries used to inspect
// it. A LockFile is immutable once loaded: re-solving a workspace produces a
// fresh instance instead of mutating the one concurrent readers may hold.
//
// All slot-scoped queries degrade gracefully: a missing environment, a missing
// platform entry, or a missing package all collapse to a negative answer,
// never an error. The queries are advisory lookups ("is this package known to
// be locked there"), not assertions.
package lockfile

import (
	"github.com/charmbracelet/log"

	"lockstep-cli/internal/platform"
)

// FileVersion is the schema version written to persisted lock files.
const FileVersion = 1

type (
	// LockFile is the root artifact: a mapping from environment name to the
	// per-platform package lists resolved for it, plus the content hash of
	// the manifest it was solved from.
	LockFile struct {
		manifestHash string
		environments map[string]*Environment
		envOrder     []string
	}

	// Environment owns the ordered package lists per platform. Package order
	// is the solver's insertion order; it carries no query semantics but
	// keeps persistence deterministic.
	Environment struct {
		packages  map[platform.Platform][]Package
		platOrder []platform.Platform
	}
)

// ManifestHash returns the hex BLAKE3 hash of the manifest this lock file was
// solved from, or "" when the lock file predates hashing or was built by hand.
func (l *LockFile) ManifestHash() string { return l.manifestHash }

// Environment looks up an environment by its case-sensitive name.
func (l *LockFile) Environment(name string) (*Environment, bool) {
	env, ok := l.environments[name]
	return env, ok
}

// EnvironmentNames returns the environment names in insertion order.
func (l *LockFile) EnvironmentNames() []string {
	out := make([]string, len(l.envOrder))
	copy(out, l.envOrder)
	return out
}

// IsEmpty reports whether the lock file contains no environments at all.
func (l *LockFile) IsEmpty() bool { return len(l.envOrder) == 0 }

// Packages returns the locked packages for a platform in insertion order.
// The boolean is false when the environment has no entry for the platform.
func (e *Environment) Packages(p platform.Platform) ([]Package, bool) {
	pkgs, ok := e.packages[p]
	return pkgs, ok
}

// Platforms returns the platforms the environment is locked for, in
// insertion order.
func (e *Environment) Platforms() []platform.Platform {
	out := make([]platform.Platform, len(e.platOrder))
	copy(out, e.platOrder)
	return out
}

// ContainsCondaPackage reports whether the given environment/platform slot
// holds a conda package with the given normalized name.
func (l *LockFile) ContainsCondaPackage(env string, plat platform.Platform, name string) bool {
	e, ok := l.environments[env]
	if !ok {
		return false
	}
	want := NormalizeCondaName(name)
	for _, pkg := range e.packages[plat] {
		if conda, ok := pkg.(*CondaPackage); ok && conda.Name() == want {
			return true
		}
	}
	return false
}

// ContainsPypiPackage reports whether the given environment/platform slot
// holds a pypi package with exactly the given name. Unlike the conda
// namespace, pypi names are compared byte for byte.
func (l *LockFile) ContainsPypiPackage(env string, plat platform.Platform, name string) bool {
	e, ok := l.environments[env]
	if !ok {
		return false
	}
	for _, pkg := range e.packages[plat] {
		if pypi, ok := pkg.(*PypiPackage); ok && pypi.Name() == name {
			return true
		}
	}
	return false
}

// ContainsMatchSpec reports whether any conda package in the slot satisfies
// the spec. Absent constraint fields on the spec act as wildcards.
func (l *LockFile) ContainsMatchSpec(env string, plat platform.Platform, spec MatchSpec) bool {
	e, ok := l.environments[env]
	if !ok {
		return false
	}
	for _, pkg := range e.packages[plat] {
		if conda, ok := pkg.(*CondaPackage); ok && conda.Satisfies(spec) {
			return true
		}
	}
	return false
}

// ContainsPEP508Requirement reports whether any pypi package in the slot
// satisfies the requirement's name/specifier/extras constraints. A missing
// environment is reported (distinctly from the conda queries) and still
// yields false.
func (l *LockFile) ContainsPEP508Requirement(env string, plat platform.Platform, req Requirement) bool {
	e, ok := l.environments[env]
	if !ok {
		log.Debug("environment not found in lock file", "environment", env)
		return false
	}
	for _, pkg := range e.packages[plat] {
		if pypi, ok := pkg.(*PypiPackage); ok && pypi.Satisfies(req) {
			return true
		}
	}
	return false
}

// PypiPackageVersion returns the canonical version string of the first pypi
// package with the given name, or false when no such package (or the
// environment/platform slot) exists.
func (l *LockFile) PypiPackageVersion(env string, plat platform.Platform, name string) (string, bool) {
	e, ok := l.environments[env]
	if !ok {
		return "", false
	}
	for _, pkg := range e.packages[plat] {
		if pypi, ok := pkg.(*PypiPackage); ok && pypi.Name() == name {
			return pypi.Version, true
		}
	}
	return "", false
}

// PackageLocation returns the location (URL or local path) of the first
// package whose name matches, searching both the conda and pypi namespaces
// in insertion order.
func (l *LockFile) PackageLocation(env string, plat platform.Platform, name string) (Location, bool) {
	e, ok := l.environments[env]
	if !ok {
		return Location{}, false
	}
	for _, pkg := range e.packages[plat] {
		if pkg.Name() == name {
			return pkg.Location(), true
		}
	}
	return Location{}, false
}
