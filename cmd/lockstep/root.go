// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for lockstep.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"lockstep-cli/internal/config"
	"lockstep-cli/internal/issue"
	"lockstep-cli/internal/progress"
	"lockstep-cli/internal/workspace"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// manifestPath points at a manifest file or workspace directory,
	// bypassing upward discovery from the working directory
	manifestPath string

	// appConfig is the loaded global configuration.
	appConfig = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "lockstep",
		Short: "A lock file driven environment and task runner",
		Long: TitleStyle.Render("lockstep") + SubtitleStyle.Render(" - A lock file driven environment and task runner") + `

lockstep reads a 'lockstep.toml' manifest describing dependencies,
features, environments and tasks, pins every environment's packages
in a 'lockstep.lock' file, and runs tasks inside environments
materialized from that lock file.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a lockstep.toml in your project directory
  2. Define dependencies and tasks
  3. Run tasks with: lockstep run <task-name>

` + SubtitleStyle.Render("Examples:") + `
  lockstep install          Materialize all environments
  lockstep run build        Run the 'build' task
  lockstep run -e gpu train Run 'train' in the 'gpu' environment
  lockstep lock --check     Verify the lock file is up to date
  lockstep task list        List available tasks`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest-path", "", "path to lockstep.toml or a directory containing it")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(taskCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig loads the global config and applies logging settings.
func initRootConfig() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		cfg = config.DefaultConfig()
	}
	appConfig = cfg

	if !verbose {
		verbose = cfg.UI.Verbose
	}
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// loadWorkspace resolves the workspace from --manifest-path or by walking
// upwards from the working directory.
func loadWorkspace() (*workspace.Workspace, error) {
	if manifestPath != "" {
		return workspace.FromPath(manifestPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Discover(cwd)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("find workspace").
			WithResource(cwd).
			WithSuggestion("Create a lockstep.toml in your project directory").
			WithSuggestion("Or point at one with --manifest-path").
			Wrap(err).
			BuildError()
	}
	return ws, nil
}

// newReporter builds a progress reporter honoring the configured visibility.
func newReporter() *progress.Reporter {
	return progress.NewReporter(os.Stderr, appConfig.ProgressVisibility())
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render with their suggestions; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
