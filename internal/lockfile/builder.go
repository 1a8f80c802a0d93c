// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"slices"

	"lockstep-cli/internal/platform"
)

// Builder accumulates packages into a new LockFile. The solver (or a test)
// adds packages slot by slot; Finish seals the result. A Builder enforces the
// per-slot invariant that a name appears at most once per namespace: adding a
// package whose namespace+name already exists in the slot replaces the
// earlier entry in place.
type Builder struct {
	lock *LockFile
}

// NewBuilder creates an empty lock file builder.
func NewBuilder() *Builder {
	return &Builder{
		lock: &LockFile{environments: make(map[string]*Environment)},
	}
}

// WithManifestHash records the content hash of the manifest being solved.
func (b *Builder) WithManifestHash(hash string) *Builder {
	b.lock.manifestHash = hash
	return b
}

// AddEnvironment ensures an (empty) environment exists, preserving insertion
// order. Useful for environments that lock to zero packages.
func (b *Builder) AddEnvironment(name string) *Builder {
	b.environment(name)
	return b
}

// AddPackage appends a package to the given environment/platform slot.
func (b *Builder) AddPackage(env string, plat platform.Platform, pkg Package) *Builder {
	e := b.environment(env)
	if !slices.Contains(e.platOrder, plat) {
		e.platOrder = append(e.platOrder, plat)
	}
	slot := e.packages[plat]
	for i, existing := range slot {
		if sameNamespace(existing, pkg) && existing.Name() == pkg.Name() {
			slot[i] = pkg
			e.packages[plat] = slot
			return b
		}
	}
	e.packages[plat] = append(slot, pkg)
	return b
}

// Finish seals the builder and returns the immutable LockFile. The builder
// must not be reused afterwards.
func (b *Builder) Finish() *LockFile {
	lock := b.lock
	b.lock = nil
	return lock
}

func (b *Builder) environment(name string) *Environment {
	if e, ok := b.lock.environments[name]; ok {
		return e
	}
	e := &Environment{packages: make(map[platform.Platform][]Package)}
	b.lock.environments[name] = e
	b.lock.envOrder = append(b.lock.envOrder, name)
	return e
}

func sameNamespace(a, c Package) bool {
	_, aConda := a.(*CondaPackage)
	_, cConda := c.(*CondaPackage)
	return aConda == cConda
}
