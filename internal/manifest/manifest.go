// SPDX-License-Identifier: MPL-2.0

// Package manifest models the declarative project description: workspace
// metadata, dependency specifiers, named tasks and the feature/environment
// structure that groups them into installable targets. The on-disk form is a
// TOML file (lockstep.toml); decoding is a thin boundary and deeper schema
// validation is the concern of the callers that interpret each table.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"lockstep-cli/internal/platform"
)

const (
	// FileName is the manifest file name searched for in a workspace root.
	FileName = "lockstep.toml"
	// DefaultEnvironmentName is the implicit environment every workspace has.
	DefaultEnvironmentName = "default"
	// DefaultFeatureName identifies the implicit feature formed by the
	// manifest's top-level dependency and task tables.
	DefaultFeatureName = "default"
)

var (
	// ErrUnknownFeature is returned when an environment references a feature
	// that is not declared in the manifest.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrTaskNotFound is returned by task mutations targeting a missing task.
	ErrTaskNotFound = errors.New("task not found")
)

type (
	// Manifest is the root of the parsed project description.
	Manifest struct {
		Workspace        Workspace                 `toml:"workspace"`
		Dependencies     map[string]string         `toml:"dependencies,omitempty"`
		PypiDependencies map[string]string         `toml:"pypi-dependencies,omitempty"`
		Tasks            map[string]Task           `toml:"tasks,omitempty"`
		Feature          map[string]Feature        `toml:"feature,omitempty"`
		Environments     map[string]EnvironmentDef `toml:"environments,omitempty"`
	}

	// Workspace holds project-wide metadata.
	Workspace struct {
		Name      string              `toml:"name"`
		Channels  []string            `toml:"channels,omitempty"`
		Platforms []platform.Platform `toml:"platforms,omitempty"`
	}

	// Task is one named, executable task definition.
	Task struct {
		// Cmd is the command line, run through the embedded POSIX shell.
		// Empty Cmd with a non-empty DependsOn makes the task an alias.
		Cmd         string            `toml:"cmd,omitempty"`
		Cwd         string            `toml:"cwd,omitempty"`
		Env         map[string]string `toml:"env,omitempty"`
		DependsOn   []string          `toml:"depends-on,omitempty"`
		CleanEnv    bool              `toml:"clean-env,omitempty"`
		Description string            `toml:"description,omitempty"`
		// Platforms restricts the task to specific platforms; empty means all.
		Platforms []platform.Platform `toml:"platforms,omitempty"`
	}

	// Feature is a named grouping of dependencies and tasks that
	// environments compose.
	Feature struct {
		Dependencies     map[string]string   `toml:"dependencies,omitempty"`
		PypiDependencies map[string]string   `toml:"pypi-dependencies,omitempty"`
		Platforms        []platform.Platform `toml:"platforms,omitempty"`
		Tasks            map[string]Task     `toml:"tasks,omitempty"`
	}

	// EnvironmentDef declares a named environment as a list of features.
	EnvironmentDef struct {
		Features         []string `toml:"features,omitempty"`
		NoDefaultFeature bool     `toml:"no-default-feature,omitempty"`
	}
)

// Parse decodes a manifest from its TOML form.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for envName, env := range m.Environments {
		for _, feat := range env.Features {
			if _, ok := m.Feature[feat]; !ok {
				return nil, fmt.Errorf("environment %q: %w: %q", envName, ErrUnknownFeature, feat)
			}
		}
	}
	return &m, nil
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Save encodes the manifest back to TOML and writes it to path.
func (m *Manifest) Save(path string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// IsAlias reports whether the task only forwards to its dependencies.
func (t Task) IsAlias() bool { return t.Cmd == "" && len(t.DependsOn) > 0 }

// SupportsPlatform reports whether the task may run on the platform.
// An empty restriction list means every platform.
func (t Task) SupportsPlatform(p platform.Platform) bool {
	return len(t.Platforms) == 0 || slices.Contains(t.Platforms, p)
}

// HasEnvironment reports whether the named environment exists. The default
// environment always exists, even when not declared.
func (m *Manifest) HasEnvironment(name string) bool {
	if name == DefaultEnvironmentName {
		return true
	}
	_, ok := m.Environments[name]
	return ok
}

// EnvironmentNames returns all environment names: "default" first, the
// declared ones after it in sorted order.
func (m *Manifest) EnvironmentNames() []string {
	names := []string{DefaultEnvironmentName}
	declared := make([]string, 0, len(m.Environments))
	for name := range m.Environments {
		if name != DefaultEnvironmentName {
			declared = append(declared, name)
		}
	}
	sort.Strings(declared)
	return append(names, declared...)
}

// FeatureNames returns the features composed into an environment, most
// specific first: the environment's declared features in declaration order,
// then the implicit default feature unless opted out.
func (m *Manifest) FeatureNames(env string) []string {
	var names []string
	noDefault := false
	if def, ok := m.Environments[env]; ok {
		names = append(names, def.Features...)
		noDefault = def.NoDefaultFeature
	}
	if !noDefault {
		names = append(names, DefaultFeatureName)
	}
	return names
}

// Platforms returns the platforms an environment supports: the workspace
// platform list, narrowed by any feature that declares its own restriction.
func (m *Manifest) Platforms(env string) []platform.Platform {
	supported := slices.Clone(m.Workspace.Platforms)
	for _, featName := range m.FeatureNames(env) {
		feat, ok := m.Feature[featName]
		if !ok || len(feat.Platforms) == 0 {
			continue
		}
		supported = slices.DeleteFunc(supported, func(p platform.Platform) bool {
			return !slices.Contains(feat.Platforms, p)
		})
	}
	return supported
}

// BestPlatform resolves the most specific platform for running tasks in an
// environment: the host platform when the environment supports it, otherwise
// the first supported platform, otherwise the host platform (unconstrained
// workspaces run on whatever host they are on).
func (m *Manifest) BestPlatform(env string) platform.Platform {
	supported := m.Platforms(env)
	current := platform.Current()
	if len(supported) == 0 || slices.Contains(supported, current) {
		return current
	}
	return supported[0]
}

// CondaDependencies merges the conda dependency specifiers of an
// environment's features. More specific features win on conflicts.
func (m *Manifest) CondaDependencies(env string) map[string]string {
	return m.mergeDeps(env, func(f Feature) map[string]string { return f.Dependencies }, m.Dependencies)
}

// PypiDependenciesOf merges the pypi dependency specifiers of an
// environment's features. More specific features win on conflicts.
func (m *Manifest) PypiDependenciesOf(env string) map[string]string {
	return m.mergeDeps(env, func(f Feature) map[string]string { return f.PypiDependencies }, m.PypiDependencies)
}

func (m *Manifest) mergeDeps(env string, pick func(Feature) map[string]string, defaults map[string]string) map[string]string {
	merged := make(map[string]string)
	feats := m.FeatureNames(env)
	// Walk least specific first so later (more specific) entries override.
	for i := len(feats) - 1; i >= 0; i-- {
		var deps map[string]string
		if feats[i] == DefaultFeatureName {
			deps = defaults
		} else if feat, ok := m.Feature[feats[i]]; ok {
			deps = pick(feat)
		}
		for name, spec := range deps {
			merged[name] = spec
		}
	}
	return merged
}
