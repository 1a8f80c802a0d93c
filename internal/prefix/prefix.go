// SPDX-License-Identifier: MPL-2.0

// Package prefix materializes locked environments into on-disk installations
// and keeps them consistent with the lock file. A Prefix is the installation
// directory for one (environment, platform) pair; the Materializer is its
// sole writer, tasks only read from it.
package prefix

import (
	"errors"
	"fmt"
	"path/filepath"

	"lockstep-cli/internal/platform"
)

// Subdirectories inside a prefix.
const (
	recordsDirName = "records"
	binDirName     = "bin"
)

var (
	// ErrEnvironmentNotLocked is the sentinel error wrapped by EnvironmentNotLockedError.
	ErrEnvironmentNotLocked = errors.New("environment not locked")
)

type (
	// Prefix is the materialized on-disk installation of one environment's
	// locked package set for one platform.
	Prefix struct {
		// Root is the installation directory.
		Root string
		// Environment is the owning environment name.
		Environment string
		// Platform is the platform the installation was materialized for.
		Platform platform.Platform
	}

	// EnvironmentNotLockedError is returned when materialization is
	// requested for an environment/platform slot the lock file does not
	// cover. It wraps ErrEnvironmentNotLocked for errors.Is().
	EnvironmentNotLockedError struct {
		Environment string
		Platform    platform.Platform
	}
)

// Error implements the error interface.
func (e *EnvironmentNotLockedError) Error() string {
	return fmt.Sprintf("environment %q is not locked for platform %s (run the lock step first)", e.Environment, e.Platform)
}

// Unwrap returns ErrEnvironmentNotLocked so callers can use errors.Is.
func (e *EnvironmentNotLockedError) Unwrap() error { return ErrEnvironmentNotLocked }

// RecordsDir returns the directory holding one installation record per
// locked package.
func (p *Prefix) RecordsDir() string { return filepath.Join(p.Root, recordsDirName) }

// BinDir returns the executable directory activation puts on PATH.
func (p *Prefix) BinDir() string { return filepath.Join(p.Root, binDirName) }

// ActivationEnv returns the environment variables that activate the prefix
// for child processes. inheritedPath is the PATH value to extend; it may be
// empty for a clean environment.
func (p *Prefix) ActivationEnv(inheritedPath string) map[string]string {
	path := p.BinDir()
	if inheritedPath != "" {
		path += string(filepath.ListSeparator) + inheritedPath
	}
	return map[string]string{
		"PATH":                 path,
		"LOCKSTEP_PREFIX":      p.Root,
		"LOCKSTEP_ENVIRONMENT": p.Environment,
		"LOCKSTEP_PLATFORM":    string(p.Platform),
	}
}
