// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lockstep-cli/internal/solve"
	"lockstep-cli/internal/workspace"
)

var (
	lockCheck bool

	lockCmd = &cobra.Command{
		Use:   "lock",
		Short: "Bring the lock file up to date with the manifest",
		Long: `Solve the manifest and write the lock file if it is missing or stale.
Nothing is installed.

With --check, report whether the lock file is up to date without writing
anything; a stale or missing lock file yields exit code 1.`,
		Args: cobra.NoArgs,
		RunE: ensureLockFile,
	}
)

func init() {
	lockCmd.Flags().BoolVar(&lockCheck, "check", false, "only check whether the lock file is up to date")
}

func ensureLockFile(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	if lockCheck {
		upToDate, err := ws.IsLockFileUpToDate()
		if err != nil {
			return err
		}
		if !upToDate {
			fmt.Fprintln(cmd.OutOrStdout(), ErrorStyle.Render("✗ ")+workspace.LockFileName+" is not up to date")
			return &ExitError{Code: 1, Err: &workspace.StaleLockFileError{ManifestPath: ws.ManifestPath}}
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✔ ")+workspace.LockFileName+" is up to date")
		return nil
	}

	if _, err := ws.UpdateLockFile(cmd.Context(), solve.PinningSolver{}, workspace.UpdateOptions{}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✔ ")+workspace.LockFileName+" is up to date")
	return nil
}
