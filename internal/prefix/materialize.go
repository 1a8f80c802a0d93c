// SPDX-License-Identifier: MPL-2.0

package prefix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"lockstep-cli/internal/lockfile"
	"lockstep-cli/internal/platform"
	"lockstep-cli/internal/progress"
)

type (
	// UpdateMode selects how much an existing prefix is trusted.
	UpdateMode int

	// Materializer turns lock file slots into ready-to-use prefixes. Within
	// one run each (environment, platform) pair is materialized at most
	// once; the cache is keyed by that pair, so a run spanning several run
	// environments materializes each of them independently.
	Materializer struct {
		lock      *lockfile.LockFile
		envsDir   string
		installer Installer
		reporter  *progress.Reporter
		cache     map[cacheKey]*Prefix
	}

	cacheKey struct {
		env  string
		plat platform.Platform
	}
)

const (
	// Revalidate forces a consistency check (and repair) of the on-disk
	// installation against the lock file even when the prefix looks done.
	Revalidate UpdateMode = iota
	// Fast trusts an apparently complete prefix and only installs what is
	// missing entirely.
	Fast
)

// String returns the mode name for logs.
func (m UpdateMode) String() string {
	if m == Fast {
		return "fast"
	}
	return "revalidate"
}

// NewMaterializer creates a materializer for one loaded lock file. installer
// may be nil to use the default record installer; reporter may be nil to
// stay silent.
func NewMaterializer(lock *lockfile.LockFile, envsDir string, installer Installer, reporter *progress.Reporter) *Materializer {
	if installer == nil {
		installer = NewRecordInstaller()
	}
	return &Materializer{
		lock:      lock,
		envsDir:   envsDir,
		installer: installer,
		reporter:  reporter,
		cache:     make(map[cacheKey]*Prefix),
	}
}

// Prefix ensures the installation for (env, plat) exists and is consistent
// with the lock file, returning the ready prefix. The operation is
// idempotent: a second call with the same arguments against an unmodified
// lock file observes a consistent prefix and changes nothing.
//
// reinstall lists package names to force-reinstall even when their records
// already match.
func (m *Materializer) Prefix(ctx context.Context, env string, plat platform.Platform, mode UpdateMode, reinstall []string) (*Prefix, error) {
	key := cacheKey{env: env, plat: plat}
	if p, ok := m.cache[key]; ok {
		return p, nil
	}

	environment, ok := m.lock.Environment(env)
	if !ok {
		return nil, &EnvironmentNotLockedError{Environment: env, Platform: plat}
	}
	packages, ok := environment.Packages(plat)
	if !ok {
		return nil, &EnvironmentNotLockedError{Environment: env, Platform: plat}
	}

	p := &Prefix{
		Root:        filepath.Join(m.envsDir, env),
		Environment: env,
		Platform:    plat,
	}
	for _, dir := range []string{p.RecordsDir(), p.BinDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create prefix directory: %w", err)
		}
	}

	if err := m.sync(ctx, p, packages, mode, reinstall); err != nil {
		return nil, err
	}

	m.cache[key] = p
	return p, nil
}

// sync reconciles the on-disk records with the locked package set.
func (m *Materializer) sync(ctx context.Context, p *Prefix, packages []lockfile.Package, mode UpdateMode, reinstall []string) error {
	existing, err := readRecords(p)
	if err != nil {
		return err
	}

	wanted := make(map[string]Record, len(packages))
	var pending []lockfile.Package
	for _, pkg := range packages {
		rec := RecordOf(pkg)
		wanted[rec.FileName()] = rec

		current, present := existing[rec.FileName()]
		switch {
		case slices.Contains(reinstall, pkg.Name()):
			pending = append(pending, pkg)
		case !present:
			pending = append(pending, pkg)
		case mode == Revalidate && !current.Matches(rec):
			pending = append(pending, pkg)
		}
	}

	if len(pending) > 0 {
		m.reporter.Step("installing %d package(s) into %s", len(pending), p.Environment)
	}
	for _, pkg := range pending {
		log.Debug("installing package", "environment", p.Environment, "package", pkg.Name())
		if err := m.installer.Install(ctx, p, pkg); err != nil {
			return err
		}
	}

	if mode == Revalidate {
		// Drop records for packages no longer locked.
		for name, rec := range existing {
			if _, ok := wanted[name]; ok {
				continue
			}
			log.Debug("removing stale package", "environment", p.Environment, "package", rec.Name)
			if err := m.installer.Remove(ctx, p, rec); err != nil {
				return err
			}
		}
	}

	if len(pending) > 0 {
		m.reporter.Done("environment %s is up to date (%s)", p.Environment, p.Platform)
	}
	return nil
}
