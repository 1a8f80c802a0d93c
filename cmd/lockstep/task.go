// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lockstep-cli/internal/manifest"
	"lockstep-cli/internal/platform"
	"lockstep-cli/internal/task"
)

var (
	taskAddFeature     string
	taskAddDependsOn   []string
	taskAddCwd         string
	taskAddDescription string
	taskAddCleanEnv    bool
	taskAddPlatforms   []string

	taskRemoveFeature string

	taskListEnvironment string

	taskCmd = &cobra.Command{
		Use:   "task",
		Short: "Manage tasks in the manifest",
	}

	taskAddCmd = &cobra.Command{
		Use:   "add <name> <cmd...>",
		Short: "Add a task to the manifest",
		Args:  cobra.MinimumNArgs(2),
		RunE:  addTask,
	}

	taskRemoveCmd = &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a task from the manifest",
		Args:  cobra.ExactArgs(1),
		RunE:  removeTask,
	}

	taskAliasCmd = &cobra.Command{
		Use:   "alias <name> <task...>",
		Short: "Add an alias that runs other tasks",
		Args:  cobra.MinimumNArgs(2),
		RunE:  addAlias,
	}

	taskListCmd = &cobra.Command{
		Use:   "list",
		Short: "List tasks visible per environment",
		Args:  cobra.NoArgs,
		RunE:  listTasks,
	}
)

func init() {
	taskAddCmd.Flags().StringVar(&taskAddFeature, "feature", manifest.DefaultFeatureName, "feature to add the task to")
	taskAddCmd.Flags().StringSliceVar(&taskAddDependsOn, "depends-on", nil, "tasks that must run first")
	taskAddCmd.Flags().StringVar(&taskAddCwd, "cwd", "", "working directory relative to the workspace root")
	taskAddCmd.Flags().StringVar(&taskAddDescription, "description", "", "task description")
	taskAddCmd.Flags().BoolVar(&taskAddCleanEnv, "clean-env", false, "run without inheriting the caller's environment")
	taskAddCmd.Flags().StringSliceVar(&taskAddPlatforms, "platform", nil, "restrict the task to specific platforms")

	taskRemoveCmd.Flags().StringVar(&taskRemoveFeature, "feature", manifest.DefaultFeatureName, "feature to remove the task from")

	taskListCmd.Flags().StringVarP(&taskListEnvironment, "environment", "e", "", "list tasks for a single environment")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskRemoveCmd)
	taskCmd.AddCommand(taskAliasCmd)
	taskCmd.AddCommand(taskListCmd)
}

func addTask(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	platforms, err := parsePlatformList(taskAddPlatforms)
	if err != nil {
		return err
	}
	def := manifest.Task{
		Cmd:         strings.Join(args[1:], " "),
		Cwd:         taskAddCwd,
		DependsOn:   taskAddDependsOn,
		CleanEnv:    taskAddCleanEnv,
		Description: taskAddDescription,
		Platforms:   platforms,
	}
	if err := ws.Manifest.AddTask(taskAddFeature, args[0], def); err != nil {
		return err
	}
	if err := ws.Manifest.Save(ws.ManifestPath); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✔ ")+"added task "+TaskStyle.Render(args[0]))
	return nil
}

func removeTask(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	if err := ws.Manifest.RemoveTask(taskRemoveFeature, args[0]); err != nil {
		return err
	}
	if err := ws.Manifest.Save(ws.ManifestPath); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✔ ")+"removed task "+TaskStyle.Render(args[0]))
	return nil
}

func addAlias(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	if err := ws.Manifest.AddAlias(args[0], args[1:]); err != nil {
		return err
	}
	if err := ws.Manifest.Save(ws.ManifestPath); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✔ ")+"added alias "+TaskStyle.Render(args[0]))
	return nil
}

func listTasks(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	envs := ws.Manifest.EnvironmentNames()
	if taskListEnvironment != "" {
		if !ws.Manifest.HasEnvironment(taskListEnvironment) {
			return &task.UnknownEnvironmentError{Name: taskListEnvironment}
		}
		envs = []string{taskListEnvironment}
	}

	for _, env := range envs {
		plat := ws.Manifest.BestPlatform(env)
		names := ws.Manifest.TaskNames(env, plat)
		if len(names) == 0 {
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render(env))
		for _, name := range names {
			line := "  " + TaskStyle.Render(name)
			if def, ok := ws.Manifest.FindTask(name, env, plat); ok && def.Description != "" {
				line += "  " + SubtitleStyle.Render(def.Description)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	}
	return nil
}

// parsePlatformList validates a list of platform flag values.
func parsePlatformList(values []string) ([]platform.Platform, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]platform.Platform, 0, len(values))
	for _, v := range values {
		p, err := platform.Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
