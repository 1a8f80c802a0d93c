// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lockstep-cli/internal/lockfile"
	"lockstep-cli/internal/prefix"
	"lockstep-cli/internal/solve"
	"lockstep-cli/internal/workspace"
)

var (
	updateDryRun    bool
	updateNoInstall bool

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Re-solve all environments and refresh the lock file",
		Long: `Re-solve every environment from the manifest, even when the lock file
is already up to date, and write the fresh result. Installed environments are
brought in line with the new lock file unless --no-install is given.`,
		Args: cobra.NoArgs,
		RunE: updateLockFile,
	}
)

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "solve but do not write the lock file or install")
	updateCmd.Flags().BoolVar(&updateNoInstall, "no-install", false, "write the lock file but skip installing environments")
}

func updateLockFile(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	hash, err := workspace.ManifestHash(ws.ManifestPath)
	if err != nil {
		return err
	}
	reporter := newReporter()
	reporter.Step("solving environments")
	lock, err := solve.PinningSolver{}.Solve(cmd.Context(), ws.Manifest, hash)
	if err != nil {
		return fmt.Errorf("solve workspace: %w", err)
	}
	reporter.Done("solved %d environments", len(lock.EnvironmentNames()))

	if updateDryRun {
		fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("dry run: lock file not written"))
		return nil
	}
	if err := lockfile.Write(ws.LockFilePath(), lock); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✔ ")+"updated "+workspace.LockFileName)

	if updateNoInstall {
		return nil
	}
	mat := prefix.NewMaterializer(lock, ws.EnvsDir(), nil, reporter)
	for _, env := range ws.Manifest.EnvironmentNames() {
		if _, err := mat.Prefix(cmd.Context(), env, ws.Manifest.BestPlatform(env), prefix.Revalidate, nil); err != nil {
			return err
		}
	}
	return nil
}
