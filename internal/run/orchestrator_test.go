// SPDX-License-Identifier: MPL-2.0

package run

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lockstep-cli/internal/lockfile"
	"lockstep-cli/internal/manifest"
	"lockstep-cli/internal/platform"
	"lockstep-cli/internal/prefix"
	"lockstep-cli/internal/task"
)

const runManifest = `
[workspace]
name = "runner"
platforms = ["linux-64"]

[tasks.a]
cmd = "echo from-a"

[tasks.b]
cmd = "exit 3"
depends-on = ["a"]

[tasks.c]
cmd = "echo from-c"
depends-on = ["b"]

[tasks.group]
depends-on = ["a"]

[tasks.probe]
cmd = "echo env=$LOCKSTEP_ENVIRONMENT var=$TASK_VAR"
env = { TASK_VAR = "hello" }

[tasks.leaky]
cmd = "echo marker=[$MARKER]"

[tasks.sealed]
cmd = "echo marker=[$MARKER]"
clean-env = true
`

func fixtureGraph(t *testing.T, invocations ...task.Invocation) *task.TaskGraph {
	t.Helper()
	m, err := manifest.Parse([]byte(runManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	search, err := task.NewSearchEnvironments(m, "", platform.Linux64)
	if err != nil {
		t.Fatalf("NewSearchEnvironments: %v", err)
	}
	g, err := task.BuildGraph(search, invocations)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	return g
}

func fixtureOrchestrator(t *testing.T, baseEnv []string) *Orchestrator {
	t.Helper()
	lock := lockfile.NewBuilder().
		AddPackage("default", platform.Linux64, &lockfile.CondaPackage{
			PackageName: "python", Version: "3.11.8", Build: "0",
		}).
		Finish()
	mat := prefix.NewMaterializer(lock, t.TempDir(), nil, nil)
	return NewOrchestrator(mat, t.TempDir(), prefix.Revalidate, baseEnv, nil)
}

func TestRun_Success(t *testing.T) {
	t.Parallel()
	o := fixtureOrchestrator(t, nil)

	result, err := o.Run(context.Background(), fixtureGraph(t, task.Invocation{Name: "a"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.Stdout(); got != "from-a\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRun_FailFastOnNonZeroExit(t *testing.T) {
	t.Parallel()
	o := fixtureOrchestrator(t, nil)

	// c depends on b depends on a; b exits 3, so c must never start.
	result, err := o.Run(context.Background(), fixtureGraph(t, task.Invocation{Name: "c"}))
	var exitErr *NonZeroExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected NonZeroExitCodeError, got %v", err)
	}
	if exitErr.Code != 3 || exitErr.TaskName != "b" {
		t.Errorf("exit error = %+v", exitErr)
	}
	if !errors.Is(err, ErrTaskFailed) {
		t.Error("exit error must wrap ErrTaskFailed")
	}

	if len(result.Tasks) != 2 {
		t.Fatalf("expected 2 executed tasks, got %d", len(result.Tasks))
	}
	// Output of tasks before the failure is retained.
	if got := result.Stdout(); got != "from-a\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRun_AliasNodesAreNotSpawned(t *testing.T) {
	t.Parallel()
	o := fixtureOrchestrator(t, nil)

	result, err := o.Run(context.Background(), fixtureGraph(t, task.Invocation{Name: "group"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Tasks) != 1 || result.Tasks[0].Name != "a" {
		t.Errorf("executed tasks = %+v", result.Tasks)
	}
}

func TestRun_ActivationAndTaskEnv(t *testing.T) {
	t.Parallel()
	o := fixtureOrchestrator(t, nil)

	result, err := o.Run(context.Background(), fixtureGraph(t, task.Invocation{Name: "probe"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.Stdout(); got != "env=default var=hello\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRun_CleanEnvDropsInheritedVariables(t *testing.T) {
	t.Parallel()
	o := fixtureOrchestrator(t, []string{"MARKER=secret"})

	inherited, err := o.Run(context.Background(), fixtureGraph(t, task.Invocation{Name: "leaky"}))
	if err != nil {
		t.Fatalf("Run leaky: %v", err)
	}
	if got := inherited.Stdout(); got != "marker=[secret]\n" {
		t.Errorf("inherited stdout = %q", got)
	}

	sealed, err := o.Run(context.Background(), fixtureGraph(t, task.Invocation{Name: "sealed"}))
	if err != nil {
		t.Fatalf("Run sealed: %v", err)
	}
	if got := sealed.Stdout(); got != "marker=[]\n" {
		t.Errorf("sealed stdout = %q", got)
	}
}

func TestRun_TrailingArgsReachOnlyRequestedTask(t *testing.T) {
	t.Parallel()
	o := fixtureOrchestrator(t, nil)

	g := fixtureGraph(t, task.Invocation{Name: "a", AdditionalArgs: []string{"--flag", "two words"}})
	result, err := o.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.Stdout(); got != "from-a --flag two words\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestExecuteWithPipes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	out, err := ExecuteWithPipes(ctx, dir, map[string]string{"GREETING": "hi"}, "echo $GREETING; echo oops >&2")
	if err != nil {
		t.Fatalf("ExecuteWithPipes: %v", err)
	}
	if out.Stdout != "hi\n" || out.Stderr != "oops\n" || out.ExitCode != 0 {
		t.Errorf("output = %+v", out)
	}

	out, err = ExecuteWithPipes(ctx, dir, nil, "exit 7")
	if err != nil {
		t.Fatalf("ExecuteWithPipes: %v", err)
	}
	if out.ExitCode != 7 {
		t.Errorf("exit code = %d", out.ExitCode)
	}

	if _, err := ExecuteWithPipes(ctx, dir, nil, "fi"); err == nil {
		t.Error("expected parse error for invalid shell syntax")
	}
}

func TestRun_StderrAggregation(t *testing.T) {
	t.Parallel()
	o := fixtureOrchestrator(t, nil)

	g := fixtureGraph(t, task.Invocation{Name: "a", AdditionalArgs: []string{">&2"}})
	// ">&2" is quoted, so it is a literal word, not a redirect.
	result, err := o.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(result.Stdout(), ">&2") {
		t.Errorf("quoted redirect leaked: stdout = %q", result.Stdout())
	}
	if result.Stderr() != "" {
		t.Errorf("stderr = %q", result.Stderr())
	}
}
