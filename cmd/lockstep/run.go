// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lockstep-cli/internal/platform"
	"lockstep-cli/internal/prefix"
	"lockstep-cli/internal/run"
	"lockstep-cli/internal/solve"
	"lockstep-cli/internal/task"
	"lockstep-cli/internal/workspace"
)

var (
	runEnvironment string
	runPlatform    string
	runFrozen      bool
	runLocked      bool
	runRevalidate  bool
	runCleanEnv    bool

	runCmd = &cobra.Command{
		Use:   "run <task> [args...]",
		Short: "Run a task in its locked environment",
		Long: `Run a task defined in the manifest.

The task's dependencies run first, in dependency order, each inside the
materialized environment it resolved to. Arguments after the task name are
appended to the task's command verbatim.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runTask,
	}
)

func init() {
	runCmd.Flags().StringVarP(&runEnvironment, "environment", "e", "", "run the task in a specific environment")
	runCmd.Flags().StringVarP(&runPlatform, "platform", "p", "", "run the task for a specific platform")
	runCmd.Flags().BoolVar(&runFrozen, "frozen", false, "fail instead of updating a stale lock file")
	runCmd.Flags().BoolVar(&runLocked, "locked", false, "require the lock file to match the manifest exactly")
	runCmd.Flags().BoolVar(&runRevalidate, "revalidate", false, "verify every installed package against the lock file before running")
	runCmd.Flags().BoolVar(&runCleanEnv, "clean-env", false, "run without inheriting the caller's environment variables")
	runCmd.MarkFlagsMutuallyExclusive("frozen", "locked")
}

func runTask(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	lock, err := ws.UpdateLockFile(cmd.Context(), solve.PinningSolver{}, workspace.UpdateOptions{
		Usage: lockFileUsage(runFrozen, runLocked),
	})
	if err != nil {
		return err
	}

	plat, err := parsePlatformFlag(runPlatform)
	if err != nil {
		return err
	}
	search, err := task.NewSearchEnvironments(ws.Manifest, runEnvironment, plat)
	if err != nil {
		return err
	}
	graph, err := task.BuildGraph(search, []task.Invocation{{Name: args[0], AdditionalArgs: args[1:]}})
	if err != nil {
		return err
	}

	mode := prefix.Fast
	if runRevalidate {
		mode = prefix.Revalidate
	}
	baseEnv := os.Environ()
	if runCleanEnv {
		// Tasks see only activation variables and their own env table.
		baseEnv = nil
	}
	reporter := newReporter()
	mat := prefix.NewMaterializer(lock, ws.EnvsDir(), nil, reporter)
	orch := run.NewOrchestrator(mat, ws.Root, mode, baseEnv, reporter)

	result, runErr := orch.Run(cmd.Context(), graph)
	fmt.Fprint(cmd.OutOrStdout(), result.Stdout())
	fmt.Fprint(cmd.ErrOrStderr(), result.Stderr())
	if runErr != nil {
		var exitErr *run.NonZeroExitCodeError
		if errors.As(runErr, &exitErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("✗ ")+runErr.Error())
			return &ExitError{Code: exitErr.Code, Err: runErr}
		}
		return runErr
	}
	return nil
}

// lockFileUsage maps the --frozen/--locked flags to a lock file usage.
func lockFileUsage(frozen, locked bool) workspace.LockFileUsage {
	switch {
	case frozen:
		return workspace.UsageFrozen
	case locked:
		return workspace.UsageLocked
	default:
		return workspace.UsageUpdate
	}
}

// parsePlatformFlag validates an optional platform flag value. An empty flag
// means each environment picks its own best platform.
func parsePlatformFlag(value string) (platform.Platform, error) {
	if value == "" {
		return "", nil
	}
	return platform.Parse(value)
}
