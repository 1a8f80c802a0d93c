// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"sort"

	"lockstep-cli/internal/platform"
)

// featureTasks returns the task table of a feature, resolving the implicit
// default feature to the manifest's top-level tasks.
func (m *Manifest) featureTasks(feature string) map[string]Task {
	if feature == DefaultFeatureName {
		return m.Tasks
	}
	if feat, ok := m.Feature[feature]; ok {
		return feat.Tasks
	}
	return nil
}

// FindTask looks a task up in an environment's feature chain for a platform.
// Features are searched most specific first (see FeatureNames); the first
// definition whose platform restriction allows the platform wins.
func (m *Manifest) FindTask(name, env string, plat platform.Platform) (Task, bool) {
	for _, feature := range m.FeatureNames(env) {
		if task, ok := m.featureTasks(feature)[name]; ok && task.SupportsPlatform(plat) {
			return task, true
		}
	}
	return Task{}, false
}

// TaskNames lists the tasks resolvable in an environment for a platform,
// sorted by name.
func (m *Manifest) TaskNames(env string, plat platform.Platform) []string {
	seen := make(map[string]bool)
	var names []string
	for _, feature := range m.FeatureNames(env) {
		for name, task := range m.featureTasks(feature) {
			if !seen[name] && task.SupportsPlatform(plat) {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// EnvironmentsWithTask returns the environments (in EnvironmentNames order)
// in which the task resolves for the given platform. Used by the resolver
// for its ambiguity check.
func (m *Manifest) EnvironmentsWithTask(name string, plat platform.Platform) []string {
	var envs []string
	for _, env := range m.EnvironmentNames() {
		if _, ok := m.FindTask(name, env, plat); ok {
			envs = append(envs, env)
		}
	}
	return envs
}

// AddTask installs (or overwrites) a task in a feature's task table.
// An empty feature name targets the implicit default feature.
func (m *Manifest) AddTask(feature, name string, task Task) error {
	if feature == "" || feature == DefaultFeatureName {
		if m.Tasks == nil {
			m.Tasks = make(map[string]Task)
		}
		m.Tasks[name] = task
		return nil
	}
	feat, ok := m.Feature[feature]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	if feat.Tasks == nil {
		feat.Tasks = make(map[string]Task)
	}
	feat.Tasks[name] = task
	m.Feature[feature] = feat
	return nil
}

// RemoveTask deletes a task from a feature's task table.
func (m *Manifest) RemoveTask(feature, name string) error {
	if feature == "" || feature == DefaultFeatureName {
		if _, ok := m.Tasks[name]; !ok {
			return fmt.Errorf("%w: %q", ErrTaskNotFound, name)
		}
		delete(m.Tasks, name)
		return nil
	}
	feat, ok := m.Feature[feature]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	if _, ok := feat.Tasks[name]; !ok {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	delete(feat.Tasks, name)
	m.Feature[feature] = feat
	return nil
}

// AddAlias installs an alias task: no command of its own, only dependencies.
func (m *Manifest) AddAlias(name string, dependsOn []string) error {
	return m.AddTask("", name, Task{DependsOn: dependsOn})
}
