// SPDX-License-Identifier: MPL-2.0

// Package run executes task graphs: it walks the topological order, prepares
// one activated environment per run environment, spawns each task's command
// through the embedded POSIX interpreter and stops at the first failure.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Output is the captured result of one executed command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited with status zero.
func (o *Output) Success() bool { return o.ExitCode == 0 }

// ExecuteWithPipes runs a shell command in workDir with exactly the given
// environment, capturing stdout and stderr. A non-zero exit status is not an
// error here; it is reported through Output.ExitCode and left to the caller.
// The returned error covers only failures to run the command at all.
func ExecuteWithPipes(ctx context.Context, workDir string, env map[string]string, command string) (*Output, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "task")
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(workDir),
		interp.Env(expand.ListEnviron(envToSlice(env)...)),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return nil, fmt.Errorf("create interpreter: %w", err)
	}

	out := &Output{}
	err = runner.Run(ctx, prog)
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			out.ExitCode = int(exitStatus)
			return out, nil
		}
		return out, err
	}
	return out, nil
}
