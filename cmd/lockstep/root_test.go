// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lockstep-cli/internal/config"
	"lockstep-cli/internal/manifest"
	"lockstep-cli/internal/testutil"
	"lockstep-cli/internal/workspace"
)

const cliManifest = `
[workspace]
name = "cli"
platforms = ["linux-64", "osx-arm64", "win-64"]

[dependencies]
python = ">=3.11"

[tasks.setup]
cmd = "echo setup"

[tasks.build]
cmd = "echo build"
depends-on = ["setup"]
description = "build the project"

[tasks.fail]
cmd = "exit 4"

[tasks.peek]
cmd = "echo marker=[$MARKER]"
`

// The command tree and its flag variables are package-global, so these tests
// run sequentially and reset state between executions.

func resetFlags() {
	verbose = false
	manifestPath = ""
	runEnvironment, runPlatform = "", ""
	runFrozen, runLocked, runRevalidate = false, false, false
	runCleanEnv = false
	installEnvironment = ""
	installFrozen, installLocked = false, false
	updateDryRun, updateNoInstall = false, false
	lockCheck = false
	taskAddFeature = manifest.DefaultFeatureName
	taskAddDependsOn = nil
	taskAddCwd, taskAddDescription = "", ""
	taskAddCleanEnv = false
	taskAddPlatforms = nil
	taskRemoveFeature = manifest.DefaultFeatureName
	taskListEnvironment = ""
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	// Hide progress output and keep the global config out of the user's
	// home directory.
	cfgDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte("[progress]\nvisibility = \"hidden\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	config.SetConfigDirOverride(cfgDir)
	t.Cleanup(config.Reset)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunCommand_ExecutesDependenciesFirst(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	stdout, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "build")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "setup\nbuild\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunCommand_TrailingArgs(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	stdout, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "setup", "--", "extra arg")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "setup extra arg\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunCommand_PropagatesExitCode(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	_, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "fail")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 4 {
		t.Errorf("exit code = %d, want 4", exitErr.Code)
	}
}

func TestRunCommand_CleanEnvDropsInheritedVariables(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)
	t.Setenv("MARKER", "secret")

	stdout, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "peek")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "marker=[secret]\n" {
		t.Errorf("inherited stdout = %q", stdout)
	}

	stdout, _, err = executeCommand(t, "run", "--manifest-path", c.Root(), "--clean-env", "peek")
	if err != nil {
		t.Fatalf("run --clean-env: %v", err)
	}
	if stdout != "marker=[]\n" {
		t.Errorf("clean stdout = %q", stdout)
	}
}

func TestRunCommand_FrozenFailsWithoutLockFile(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	_, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "--frozen", "setup")
	if !errors.Is(err, workspace.ErrStaleLockFile) {
		t.Errorf("expected ErrStaleLockFile, got %v", err)
	}
}

func TestLockCommand_CheckAndUpdate(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	_, _, err := executeCommand(t, "lock", "--manifest-path", c.Root(), "--check")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("expected ExitError with code 1 for a missing lock file, got %v", err)
	}

	if _, _, err := executeCommand(t, "lock", "--manifest-path", c.Root()); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, _, err := executeCommand(t, "lock", "--manifest-path", c.Root(), "--check"); err != nil {
		t.Errorf("check after lock: %v", err)
	}
	if c.LoadLock().IsEmpty() {
		t.Error("lock command should have written a lock file")
	}
}

func TestInstallCommand_MaterializesEnvironments(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	stdout, _, err := executeCommand(t, "install", "--manifest-path", c.Root())
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(stdout, "installed environment") {
		t.Errorf("stdout = %q", stdout)
	}
	records := filepath.Join(c.Root(), ".lockstep", "envs", "default", "records")
	entries, err := os.ReadDir(records)
	if err != nil {
		t.Fatalf("read records dir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("install should have written package records")
	}
}

func TestUpdateCommand_DryRunWritesNothing(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	if _, _, err := executeCommand(t, "update", "--manifest-path", c.Root(), "--dry-run"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.Root(), workspace.LockFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dry run must not write the lock file, stat err = %v", err)
	}
}

func TestTaskCommands_AddRunRemove(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	if _, _, err := executeCommand(t, "task", "add", "--manifest-path", c.Root(), "greet", "echo", "hello"); err != nil {
		t.Fatalf("task add: %v", err)
	}
	stdout, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "greet")
	if err != nil {
		t.Fatalf("run added task: %v", err)
	}
	if stdout != "hello\n" {
		t.Errorf("stdout = %q", stdout)
	}

	if _, _, err := executeCommand(t, "task", "remove", "--manifest-path", c.Root(), "greet"); err != nil {
		t.Fatalf("task remove: %v", err)
	}
	if _, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "greet"); err == nil {
		t.Error("running a removed task should fail")
	}
}

func TestTaskCommands_AliasAndList(t *testing.T) {
	c := testutil.NewControl(t)
	c.WriteManifest(cliManifest)

	if _, _, err := executeCommand(t, "task", "alias", "--manifest-path", c.Root(), "all", "build"); err != nil {
		t.Fatalf("task alias: %v", err)
	}
	stdout, _, err := executeCommand(t, "run", "--manifest-path", c.Root(), "all")
	if err != nil {
		t.Fatalf("run alias: %v", err)
	}
	if stdout != "setup\nbuild\n" {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, err = executeCommand(t, "task", "list", "--manifest-path", c.Root())
	if err != nil {
		t.Fatalf("task list: %v", err)
	}
	for _, want := range []string{"default", "build", "all"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("task list output missing %q: %q", want, stdout)
		}
	}
}
