// SPDX-License-Identifier: MPL-2.0

package task

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the graph-construction failure taxonomy. All of them
// are raised before any task executes and are always fatal.
var (
	// ErrUnknownTask is the sentinel error wrapped by UnknownTaskError.
	ErrUnknownTask = errors.New("unknown task")
	// ErrUnknownEnvironment is the sentinel error wrapped by UnknownEnvironmentError.
	ErrUnknownEnvironment = errors.New("unknown environment")
	// ErrAmbiguousTask is the sentinel error wrapped by AmbiguousTaskError.
	ErrAmbiguousTask = errors.New("ambiguous task")
	// ErrCycle is the sentinel error wrapped by CycleError.
	ErrCycle = errors.New("task dependency cycle")
)

type (
	// UnknownTaskError is returned when a requested task (or a transitive
	// dependency) cannot be resolved in any searched environment.
	UnknownTaskError struct {
		Name string
		// Environment is set when the lookup was scoped to one environment.
		Environment string
	}

	// UnknownEnvironmentError is returned when an explicitly named
	// environment does not exist in the manifest.
	UnknownEnvironmentError struct {
		Name string
	}

	// AmbiguousTaskError is returned when a task resolves in more than one
	// environment with nothing to disambiguate them.
	AmbiguousTaskError struct {
		Name         string
		Environments []string
	}

	// CycleError is returned when task dependencies form a cycle.
	CycleError struct {
		Cycle []string
	}
)

// Error implements the error interface.
func (e *UnknownTaskError) Error() string {
	if e.Environment != "" {
		return fmt.Sprintf("unknown task %q in environment %q", e.Name, e.Environment)
	}
	return fmt.Sprintf("unknown task %q", e.Name)
}

// Unwrap returns ErrUnknownTask so callers can use errors.Is.
func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// Error implements the error interface.
func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment %q", e.Name)
}

// Unwrap returns ErrUnknownEnvironment so callers can use errors.Is.
func (e *UnknownEnvironmentError) Unwrap() error { return ErrUnknownEnvironment }

// Error implements the error interface.
func (e *AmbiguousTaskError) Error() string {
	return fmt.Sprintf("task %q is defined in multiple environments (%s); select one with --environment",
		e.Name, strings.Join(e.Environments, ", "))
}

// Unwrap returns ErrAmbiguousTask so callers can use errors.Is.
func (e *AmbiguousTaskError) Unwrap() error { return ErrAmbiguousTask }

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("task dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle so callers can use errors.Is.
func (e *CycleError) Unwrap() error { return ErrCycle }
