// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "update lock file"},
			want: "failed to update lock file",
		},
		{
			name: "operation and resource",
			err:  &ActionableError{Operation: "load manifest", Resource: "./lockstep.toml"},
			want: "failed to load manifest: ./lockstep.toml",
		},
		{
			name: "operation, resource and cause",
			err: &ActionableError{
				Operation: "load manifest",
				Resource:  "./lockstep.toml",
				Cause:     errors.New("no such file"),
			},
			want: "failed to load manifest: ./lockstep.toml: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := WrapWithOperation(cause, "run task")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestWrapWithOperation_NilError(t *testing.T) {
	t.Parallel()

	if got := WrapWithOperation(nil, "anything"); got != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", got)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("parse error")
	err := NewErrorContext().
		WithOperation("load manifest").
		WithResource("lockstep.toml").
		WithSuggestion("Check the TOML syntax").
		WithSuggestion("Run 'lockstep task list' to verify the manifest").
		Wrap(cause).
		Build()

	if err.Operation != "load manifest" || err.Resource != "lockstep.toml" {
		t.Errorf("unexpected context: %+v", err)
	}
	if len(err.Suggestions) != 2 {
		t.Errorf("Suggestions = %v", err.Suggestions)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if err := NewErrorContext().WithResource("x").BuildError(); err != nil {
		t.Errorf("BuildError without operation = %v, want nil", err)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	err := NewErrorContext().
		WithOperation("solve environment").
		WithSuggestion("Check your network connection").
		Wrap(fmt.Errorf("fetch channel index: %w", inner)).
		Build()

	concise := err.Format(false)
	if !strings.Contains(concise, "• Check your network connection") {
		t.Errorf("concise format missing suggestion: %q", concise)
	}
	if strings.Contains(concise, "Error chain") {
		t.Error("concise format must not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") {
		t.Errorf("verbose format missing error chain: %q", verbose)
	}
	if !strings.Contains(verbose, "2. connection refused") {
		t.Errorf("verbose format missing unwrapped cause: %q", verbose)
	}
}
