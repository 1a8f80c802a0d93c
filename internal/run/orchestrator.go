// SPDX-License-Identifier: MPL-2.0

package run

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"

	"lockstep-cli/internal/prefix"
	"lockstep-cli/internal/progress"
	"lockstep-cli/internal/task"
)

type (
	// TaskResult is the captured output of one executed task.
	TaskResult struct {
		Name   string
		RunEnv task.RunEnvironment
		Output Output
	}

	// Result aggregates the outputs of every task the run executed, in
	// execution order. On a failed run it holds everything up to and
	// including the failing task.
	Result struct {
		Tasks []TaskResult
	}

	// Orchestrator executes task graphs strictly sequentially. Activated
	// environments are prepared lazily and cached per run environment, so
	// a run touching several environments materializes each exactly once
	// and tasks sharing an environment reuse it.
	Orchestrator struct {
		materializer *prefix.Materializer
		reporter     *progress.Reporter
		root         string
		mode         prefix.UpdateMode
		baseEnv      map[string]string
		envCache     map[task.RunEnvironment]map[string]string
	}
)

// Stdout returns the concatenated standard output of all executed tasks.
func (r *Result) Stdout() string {
	var out string
	for _, t := range r.Tasks {
		out += t.Output.Stdout
	}
	return out
}

// Stderr returns the concatenated standard error of all executed tasks.
func (r *Result) Stderr() string {
	var out string
	for _, t := range r.Tasks {
		out += t.Output.Stderr
	}
	return out
}

// NewOrchestrator creates an orchestrator rooted at the workspace directory.
// baseEnv is the caller's process environment as "KEY=VALUE" pairs; tasks
// inherit it unless they ask for a clean environment.
func NewOrchestrator(materializer *prefix.Materializer, root string, mode prefix.UpdateMode, baseEnv []string, reporter *progress.Reporter) *Orchestrator {
	return &Orchestrator{
		materializer: materializer,
		reporter:     reporter,
		root:         root,
		mode:         mode,
		baseEnv:      environToMap(baseEnv),
		envCache:     make(map[task.RunEnvironment]map[string]string),
	}
}

// Run executes the graph in topological order and fails fast: the first task
// that exits non-zero stops the run, no later task is started, and the
// task's exit code is reported through NonZeroExitCodeError. The returned
// Result always covers the tasks that actually ran.
func (o *Orchestrator) Run(ctx context.Context, graph *task.TaskGraph) (*Result, error) {
	result := &Result{}
	for _, id := range graph.TopologicalOrder() {
		exec := task.FromTaskGraph(graph, id)
		if exec.IsAliasOnly() {
			log.Debug("skipping alias task", "task", exec.Name)
			continue
		}

		command, err := exec.FullCommand()
		if err != nil {
			return result, &TaskExecutionError{TaskName: exec.Name, Err: err}
		}
		env, err := o.environmentFor(ctx, exec)
		if err != nil {
			return result, err
		}

		o.reporter.Step("%s: %s", exec.Name, command)
		log.Debug("executing task", "task", exec.Name, "env", exec.RunEnvironment.String())

		out, err := ExecuteWithPipes(ctx, o.workDir(exec), env, command)
		if err != nil {
			return result, &TaskExecutionError{TaskName: exec.Name, Err: err}
		}
		result.Tasks = append(result.Tasks, TaskResult{Name: exec.Name, RunEnv: exec.RunEnvironment, Output: *out})
		if !out.Success() {
			return result, &NonZeroExitCodeError{TaskName: exec.Name, Code: out.ExitCode}
		}
	}
	return result, nil
}

// environmentFor builds the full process environment for one task: the
// activated prefix environment over the inherited base, with the task's own
// variables on top. Clean-environment tasks drop the inherited base and keep
// only the activation variables.
func (o *Orchestrator) environmentFor(ctx context.Context, exec *task.ExecutableTask) (map[string]string, error) {
	if exec.CleanEnv {
		p, err := o.materializer.Prefix(ctx, exec.RunEnvironment.Environment, exec.RunEnvironment.Platform, o.mode, nil)
		if err != nil {
			return nil, err
		}
		return overlayEnv(p.ActivationEnv(""), exec.Env), nil
	}

	activated, ok := o.envCache[exec.RunEnvironment]
	if !ok {
		p, err := o.materializer.Prefix(ctx, exec.RunEnvironment.Environment, exec.RunEnvironment.Platform, o.mode, nil)
		if err != nil {
			return nil, err
		}
		activated = overlayEnv(o.baseEnv, p.ActivationEnv(o.baseEnv["PATH"]))
		o.envCache[exec.RunEnvironment] = activated
	}
	if len(exec.Env) == 0 {
		return activated, nil
	}
	return overlayEnv(activated, exec.Env), nil
}

// workDir resolves a task's working directory against the workspace root.
func (o *Orchestrator) workDir(exec *task.ExecutableTask) string {
	if exec.Cwd == "" {
		return o.root
	}
	if filepath.IsAbs(exec.Cwd) {
		return exec.Cwd
	}
	return filepath.Join(o.root, exec.Cwd)
}
