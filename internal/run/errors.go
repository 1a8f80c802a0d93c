// SPDX-License-Identifier: MPL-2.0

package run

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskFailed is the sentinel error wrapped by NonZeroExitCodeError
	// and TaskExecutionError.
	ErrTaskFailed = errors.New("task failed")
)

type (
	// NonZeroExitCodeError is returned when a task's command exits with a
	// non-zero status. The code is the command's own exit code, reported
	// verbatim so the caller can propagate it as the process exit code.
	NonZeroExitCodeError struct {
		TaskName string
		Code     int
	}

	// TaskExecutionError is returned when a task could not be executed at
	// all: the command failed to parse, the interpreter could not start,
	// or I/O with it broke down.
	TaskExecutionError struct {
		TaskName string
		Err      error
	}
)

// Error implements the error interface.
func (e *NonZeroExitCodeError) Error() string {
	return fmt.Sprintf("task %q failed with exit code %d", e.TaskName, e.Code)
}

// Unwrap returns ErrTaskFailed so callers can use errors.Is.
func (e *NonZeroExitCodeError) Unwrap() error { return ErrTaskFailed }

// Error implements the error interface.
func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task %q could not be executed: %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskExecutionError) Unwrap() error { return e.Err }
