// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lockstep-cli/internal/prefix"
	"lockstep-cli/internal/solve"
	"lockstep-cli/internal/task"
	"lockstep-cli/internal/workspace"
)

var (
	installEnvironment string
	installFrozen      bool
	installLocked      bool

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Materialize locked environments on disk",
		Long: `Materialize environments from the lock file.

Every package recorded in the lock file is installed into the environment's
prefix directory, and packages that drifted from the lock file are repaired.
Without --environment, all environments are installed.`,
		Args: cobra.NoArgs,
		RunE: installEnvironments,
	}
)

func init() {
	installCmd.Flags().StringVarP(&installEnvironment, "environment", "e", "", "install a single environment")
	installCmd.Flags().BoolVar(&installFrozen, "frozen", false, "fail instead of updating a stale lock file")
	installCmd.Flags().BoolVar(&installLocked, "locked", false, "require the lock file to match the manifest exactly")
	installCmd.MarkFlagsMutuallyExclusive("frozen", "locked")
}

func installEnvironments(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	lock, err := ws.UpdateLockFile(cmd.Context(), solve.PinningSolver{}, workspace.UpdateOptions{
		Usage: lockFileUsage(installFrozen, installLocked),
	})
	if err != nil {
		return err
	}

	envs := ws.Manifest.EnvironmentNames()
	if installEnvironment != "" {
		if !ws.Manifest.HasEnvironment(installEnvironment) {
			return &task.UnknownEnvironmentError{Name: installEnvironment}
		}
		envs = []string{installEnvironment}
	}

	reporter := newReporter()
	mat := prefix.NewMaterializer(lock, ws.EnvsDir(), nil, reporter)
	for _, env := range envs {
		plat := ws.Manifest.BestPlatform(env)
		if _, err := mat.Prefix(cmd.Context(), env, plat, prefix.Revalidate, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✔ ")+fmt.Sprintf("installed environment %s (%s)", TaskStyle.Render(env), plat))
	}
	return nil
}
