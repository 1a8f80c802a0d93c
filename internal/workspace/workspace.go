// SPDX-License-Identifier: MPL-2.0

// Package workspace ties a manifest to its lock file on disk and carries the
// staleness rules that decide when the lock file may, must or must not be
// rewritten.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"lockstep-cli/internal/lockfile"
	"lockstep-cli/internal/manifest"
)

const (
	// LockFileName is the lock file name next to the manifest.
	LockFileName = "lockstep.lock"
	// EnvsDirName is the directory (relative to the workspace root) that
	// materialized prefixes live under.
	EnvsDirName = ".lockstep/envs"
)

var (
	// ErrManifestNotFound is returned when no manifest is found at or above
	// the starting directory.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrStaleLockFile is the sentinel error wrapped by StaleLockFileError.
	ErrStaleLockFile = errors.New("lock file is stale")
)

type (
	// Workspace is a loaded manifest plus the filesystem locations derived
	// from it.
	Workspace struct {
		// Root is the directory containing the manifest.
		Root string
		// ManifestPath is the absolute path of the manifest file.
		ManifestPath string
		// Manifest is the decoded project description.
		Manifest *manifest.Manifest
	}

	// LockFileUsage says how far an operation may go in updating the lock
	// file before using it.
	LockFileUsage int

	// UpdateOptions configures UpdateLockFile. The zero value solves when
	// stale and persists the result.
	UpdateOptions struct {
		Usage LockFileUsage
		// DryRun computes a fresh lock file without persisting it.
		DryRun bool
	}

	// Solver computes a lock file from a manifest. The constraint-solving
	// algorithm behind it is an external collaborator; this package only
	// consumes its output.
	Solver interface {
		Solve(ctx context.Context, m *manifest.Manifest, manifestHash string) (*lockfile.LockFile, error)
	}

	// StaleLockFileError is returned when the lock file does not match the
	// manifest but the requested usage forbids updating it. It wraps
	// ErrStaleLockFile for errors.Is().
	StaleLockFileError struct {
		ManifestPath string
	}
)

// Lock file usage modes.
const (
	// UsageUpdate re-solves and rewrites the lock file when it is stale.
	UsageUpdate LockFileUsage = iota
	// UsageFrozen forbids any lock file update and fails when stale.
	UsageFrozen
	// UsageLocked requires the lock file to match the manifest hash exactly,
	// without re-solving.
	UsageLocked
)

// Error implements the error interface.
func (e *StaleLockFileError) Error() string {
	return fmt.Sprintf("lock file is stale for manifest %s (re-run without --frozen/--locked to update it)", e.ManifestPath)
}

// Unwrap returns ErrStaleLockFile so callers can use errors.Is.
func (e *StaleLockFileError) Unwrap() error { return ErrStaleLockFile }

// FromPath loads a workspace from a manifest file path or a directory
// containing one.
func FromPath(path string) (*Workspace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace path: %w", err)
	}
	manifestPath := abs
	if info.IsDir() {
		manifestPath = filepath.Join(abs, manifest.FileName)
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		Root:         filepath.Dir(manifestPath),
		ManifestPath: manifestPath,
		Manifest:     m,
	}, nil
}

// Discover walks from dir upwards until it finds a manifest file.
func Discover(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(abs, manifest.FileName)
		if _, err := os.Stat(candidate); err == nil {
			return FromPath(candidate)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, fmt.Errorf("%w: no %s at or above %s", ErrManifestNotFound, manifest.FileName, dir)
		}
		abs = parent
	}
}

// LockFilePath returns the absolute path of the workspace's lock file.
func (w *Workspace) LockFilePath() string {
	return filepath.Join(w.Root, LockFileName)
}

// EnvsDir returns the directory that materialized prefixes live under.
func (w *Workspace) EnvsDir() string {
	return filepath.Join(w.Root, filepath.FromSlash(EnvsDirName))
}

// LoadLockFile reads the persisted lock file. A missing file yields an empty
// lock file, not an error: a workspace that was never solved is simply
// unlocked everywhere.
func (w *Workspace) LoadLockFile() (*lockfile.LockFile, error) {
	lock, err := lockfile.Read(w.LockFilePath())
	if errors.Is(err, os.ErrNotExist) {
		return lockfile.NewBuilder().Finish(), nil
	}
	return lock, err
}

// IsLockFileUpToDate reports whether the persisted lock file was solved from
// the manifest's current content.
func (w *Workspace) IsLockFileUpToDate() (bool, error) {
	lock, err := w.LoadLockFile()
	if err != nil {
		return false, err
	}
	if lock.IsEmpty() {
		return false, nil
	}
	hash, err := ManifestHash(w.ManifestPath)
	if err != nil {
		return false, err
	}
	return lock.ManifestHash() == hash, nil
}

// UpdateLockFile brings the lock file up to date with the manifest according
// to the requested usage and returns the in-memory instance to work with.
// An up-to-date lock file is returned as-is; a stale one is either re-solved
// (UsageUpdate) or reported as a fatal staleness error (UsageFrozen,
// UsageLocked). Re-solving never mutates a previously returned instance.
func (w *Workspace) UpdateLockFile(ctx context.Context, solver Solver, opts UpdateOptions) (*lockfile.LockFile, error) {
	upToDate, err := w.IsLockFileUpToDate()
	if err != nil {
		return nil, err
	}
	if upToDate {
		return w.LoadLockFile()
	}

	if opts.Usage == UsageFrozen || opts.Usage == UsageLocked {
		return nil, &StaleLockFileError{ManifestPath: w.ManifestPath}
	}

	hash, err := ManifestHash(w.ManifestPath)
	if err != nil {
		return nil, err
	}
	log.Debug("lock file is stale, re-solving", "manifest", w.ManifestPath)
	lock, err := solver.Solve(ctx, w.Manifest, hash)
	if err != nil {
		return nil, fmt.Errorf("solve workspace: %w", err)
	}
	if !opts.DryRun {
		if err := lockfile.Write(w.LockFilePath(), lock); err != nil {
			return nil, err
		}
	}
	return lock, nil
}
