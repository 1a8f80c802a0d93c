// SPDX-License-Identifier: MPL-2.0

package task

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ExecutableTask is one graph node flattened into everything the executor
// needs: the full command line, working directory, environment overlay and
// the run environment providing the prefix.
type ExecutableTask struct {
	Name           string
	Cmd            string
	AdditionalArgs []string
	Cwd            string
	Env            map[string]string
	CleanEnv       bool
	RunEnvironment RunEnvironment
}

// FromTaskGraph flattens a graph node into an executable task.
func FromTaskGraph(g *TaskGraph, id NodeID) *ExecutableTask {
	node := g.Node(id)
	return &ExecutableTask{
		Name:           node.Name,
		Cmd:            node.Task.Cmd,
		AdditionalArgs: node.AdditionalArgs,
		Cwd:            node.Task.Cwd,
		Env:            node.Task.Env,
		CleanEnv:       node.Task.CleanEnv,
		RunEnvironment: node.RunEnv,
	}
}

// IsAliasOnly reports whether the task has no command of its own and exists
// only to pull in its dependencies. Alias nodes are ordered but not spawned.
func (t *ExecutableTask) IsAliasOnly() bool { return t.Cmd == "" }

// FullCommand returns the shell command line to execute: the task's command
// with the caller's trailing arguments appended, each quoted so the shell
// sees them as literal words.
func (t *ExecutableTask) FullCommand() (string, error) {
	if len(t.AdditionalArgs) == 0 {
		return t.Cmd, nil
	}
	parts := make([]string, 0, len(t.AdditionalArgs)+1)
	parts = append(parts, t.Cmd)
	for _, arg := range t.AdditionalArgs {
		quoted, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote argument %q: %w", arg, err)
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " "), nil
}
