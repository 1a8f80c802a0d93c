// SPDX-License-Identifier: MPL-2.0

// Package testutil provides a workspace control harness for tests: a
// throwaway workspace directory plus helpers to write manifests, update lock
// files and run tasks through the same code paths the CLI uses, with
// progress output suppressed.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lockstep-cli/internal/lockfile"
	"lockstep-cli/internal/manifest"
	"lockstep-cli/internal/platform"
	"lockstep-cli/internal/prefix"
	"lockstep-cli/internal/run"
	"lockstep-cli/internal/solve"
	"lockstep-cli/internal/task"
	"lockstep-cli/internal/workspace"
)

// Control owns one temporary workspace for the duration of a test.
type Control struct {
	t    testing.TB
	root string
}

// NewControl creates a control with an empty workspace directory.
func NewControl(t testing.TB) *Control {
	t.Helper()
	return &Control{t: t, root: t.TempDir()}
}

// Root returns the workspace directory.
func (c *Control) Root() string { return c.root }

// WriteManifest writes the manifest file into the workspace.
func (c *Control) WriteManifest(toml string) {
	c.t.Helper()
	path := filepath.Join(c.root, manifest.FileName)
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		c.t.Fatalf("write manifest: %v", err)
	}
}

// Workspace loads the workspace from disk. Each call re-reads the manifest,
// so mutations written between calls are picked up.
func (c *Control) Workspace() *workspace.Workspace {
	c.t.Helper()
	ws, err := workspace.FromPath(c.root)
	if err != nil {
		c.t.Fatalf("load workspace: %v", err)
	}
	return ws
}

// UpdateLockFile solves the manifest and persists the lock file.
func (c *Control) UpdateLockFile(ctx context.Context) *lockfile.LockFile {
	c.t.Helper()
	lock, err := c.Workspace().UpdateLockFile(ctx, solve.PinningSolver{}, workspace.UpdateOptions{})
	if err != nil {
		c.t.Fatalf("update lock file: %v", err)
	}
	return lock
}

// LoadLock reads the persisted lock file.
func (c *Control) LoadLock() *lockfile.LockFile {
	c.t.Helper()
	lock, err := c.Workspace().LoadLockFile()
	if err != nil {
		c.t.Fatalf("load lock file: %v", err)
	}
	return lock
}

// RunCommand describes one task run. Fields are set up front; Execute is the
// only method that does work, so a command can be inspected or reused.
type RunCommand struct {
	control *Control

	// Task is the requested task name.
	Task string
	// Args are trailing literal arguments for the task.
	Args []string
	// Environment restricts the task search to one environment.
	Environment string
	// Platform pins the platform; empty means per-environment default.
	Platform platform.Platform
	// Usage controls whether a stale lock file may be updated first.
	Usage workspace.LockFileUsage
	// Mode selects how thoroughly prefixes are checked before running.
	Mode prefix.UpdateMode
}

// RunTask builds a run command for one task with default settings: any
// environment, default platform, lock file updates allowed, fast prefix
// checks.
func (c *Control) RunTask(name string) *RunCommand {
	return &RunCommand{control: c, Task: name, Mode: prefix.Fast}
}

// WithArgs sets trailing arguments.
func (r *RunCommand) WithArgs(args ...string) *RunCommand {
	r.Args = args
	return r
}

// WithEnvironment restricts the search to one environment.
func (r *RunCommand) WithEnvironment(env string) *RunCommand {
	r.Environment = env
	return r
}

// WithUsage sets the lock file usage.
func (r *RunCommand) WithUsage(usage workspace.LockFileUsage) *RunCommand {
	r.Usage = usage
	return r
}

// Execute performs the run: ensure the lock file, build the task graph,
// materialize prefixes on demand and execute in order.
func (r *RunCommand) Execute(ctx context.Context) (*run.Result, error) {
	ws, err := workspace.FromPath(r.control.root)
	if err != nil {
		return nil, err
	}
	lock, err := ws.UpdateLockFile(ctx, solve.PinningSolver{}, workspace.UpdateOptions{Usage: r.Usage})
	if err != nil {
		return nil, err
	}

	search, err := task.NewSearchEnvironments(ws.Manifest, r.Environment, r.Platform)
	if err != nil {
		return nil, err
	}
	graph, err := task.BuildGraph(search, []task.Invocation{{Name: r.Task, AdditionalArgs: r.Args}})
	if err != nil {
		return nil, err
	}

	mat := prefix.NewMaterializer(lock, ws.EnvsDir(), nil, nil)
	orch := run.NewOrchestrator(mat, ws.Root, r.Mode, os.Environ(), nil)
	return orch.Run(ctx, graph)
}
