// SPDX-License-Identifier: MPL-2.0

// Package task resolves task definitions across environments and features,
// expands them into a dependency graph with a deterministic execution order,
// and exposes each node as an executable unit for the run orchestrator.
package task

import (
	"fmt"

	"lockstep-cli/internal/manifest"
	"lockstep-cli/internal/platform"
)

type (
	// RunEnvironment identifies the (environment, resolved platform) pair a
	// task executes against.
	RunEnvironment struct {
		Environment string
		Platform    platform.Platform
	}

	// SearchEnvironments scopes task lookups: either pinned to an explicit
	// environment or spanning every environment the manifest declares.
	SearchEnvironments struct {
		manifest *manifest.Manifest
		explicit string
		platform platform.Platform
		pinned   bool
	}
)

// String renders the pair for error messages and logs.
func (r RunEnvironment) String() string {
	return fmt.Sprintf("%s (%s)", r.Environment, r.Platform)
}

// NewSearchEnvironments builds a lookup scope. explicitEnv may be empty to
// search every environment; an unknown explicit name is fatal. plat may be
// empty, in which case each candidate environment's best-supported platform
// is used, falling back to the host platform.
func NewSearchEnvironments(m *manifest.Manifest, explicitEnv string, plat platform.Platform) (SearchEnvironments, error) {
	if explicitEnv != "" && !m.HasEnvironment(explicitEnv) {
		return SearchEnvironments{}, &UnknownEnvironmentError{Name: explicitEnv}
	}
	return SearchEnvironments{
		manifest: m,
		explicit: explicitEnv,
		platform: plat,
		pinned:   plat != "",
	}, nil
}

// platformFor resolves the lookup platform for one candidate environment.
func (s SearchEnvironments) platformFor(env string) platform.Platform {
	if s.pinned {
		return s.platform
	}
	return s.manifest.BestPlatform(env)
}

// FindTask locates the concrete definition of a named task.
//
// With an explicit environment the task must resolve there. Otherwise every
// environment is searched; a task visible in the default environment is
// never ambiguous (shared default-feature tasks appear everywhere), but a
// task found only in several non-default environments has no disambiguation
// and is a fatal AmbiguousTaskError.
func (s SearchEnvironments) FindTask(name string) (manifest.Task, RunEnvironment, error) {
	if s.explicit != "" {
		runEnv := RunEnvironment{Environment: s.explicit, Platform: s.platformFor(s.explicit)}
		t, ok := s.manifest.FindTask(name, s.explicit, runEnv.Platform)
		if !ok {
			return manifest.Task{}, RunEnvironment{}, &UnknownTaskError{Name: name, Environment: s.explicit}
		}
		return t, runEnv, nil
	}

	var candidates []string
	for _, env := range s.manifest.EnvironmentNames() {
		if _, ok := s.manifest.FindTask(name, env, s.platformFor(env)); ok {
			candidates = append(candidates, env)
		}
	}
	switch {
	case len(candidates) == 0:
		return manifest.Task{}, RunEnvironment{}, &UnknownTaskError{Name: name}
	case candidates[0] == manifest.DefaultEnvironmentName, len(candidates) == 1:
		env := candidates[0]
		runEnv := RunEnvironment{Environment: env, Platform: s.platformFor(env)}
		t, _ := s.manifest.FindTask(name, env, runEnv.Platform)
		return t, runEnv, nil
	default:
		return manifest.Task{}, RunEnvironment{}, &AmbiguousTaskError{Name: name, Environments: candidates}
	}
}

// findTaskIn resolves a dependency task inside an already-chosen run
// environment. Dependencies never re-trigger the cross-environment search;
// they inherit their parent's scope.
func (s SearchEnvironments) findTaskIn(name string, runEnv RunEnvironment) (manifest.Task, error) {
	t, ok := s.manifest.FindTask(name, runEnv.Environment, runEnv.Platform)
	if !ok {
		return manifest.Task{}, &UnknownTaskError{Name: name, Environment: runEnv.Environment}
	}
	return t, nil
}
