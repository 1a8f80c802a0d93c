// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"lockstep-cli/internal/platform"
)

// ErrUnsupportedLockVersion is the sentinel error wrapped by UnsupportedLockVersionError.
var ErrUnsupportedLockVersion = errors.New("unsupported lock file version")

// Package kind discriminators in the persisted form.
const (
	kindConda = "conda"
	kindPypi  = "pypi"
)

type (
	// UnsupportedLockVersionError is returned when a persisted lock file
	// declares a schema version this build does not understand.
	UnsupportedLockVersionError struct {
		Version int
	}

	fileModel struct {
		Version      int                 `yaml:"version"`
		ManifestHash string              `yaml:"manifest-hash,omitempty"`
		Environments map[string]envModel `yaml:"environments"`
	}

	envModel struct {
		Packages map[string][]packageModel `yaml:"packages"`
	}

	packageModel struct {
		Kind     string   `yaml:"kind"`
		Name     string   `yaml:"name"`
		Version  string   `yaml:"version"`
		Build    string   `yaml:"build,omitempty"`
		Channel  string   `yaml:"channel,omitempty"`
		Extras   []string `yaml:"extras,omitempty"`
		Location string   `yaml:"location,omitempty"`
	}
)

// Error implements the error interface.
func (e *UnsupportedLockVersionError) Error() string {
	return fmt.Sprintf("unsupported lock file version %d (this build reads version %d)", e.Version, FileVersion)
}

// Unwrap returns ErrUnsupportedLockVersion so callers can use errors.Is.
func (e *UnsupportedLockVersionError) Unwrap() error { return ErrUnsupportedLockVersion }

// Read loads a persisted lock file from disk.
func Read(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lock file: %w", err)
	}
	return Parse(data)
}

// Parse decodes the YAML form of a lock file. Environment and platform keys
// are restored in sorted order (map encoding does not preserve solver
// insertion order); package lists keep their persisted order.
func Parse(data []byte) (*LockFile, error) {
	var model fileModel
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	if model.Version != FileVersion {
		return nil, &UnsupportedLockVersionError{Version: model.Version}
	}

	b := NewBuilder().WithManifestHash(model.ManifestHash)

	envNames := make([]string, 0, len(model.Environments))
	for name := range model.Environments {
		envNames = append(envNames, name)
	}
	sort.Strings(envNames)

	for _, envName := range envNames {
		b.AddEnvironment(envName)
		env := model.Environments[envName]

		platNames := make([]string, 0, len(env.Packages))
		for p := range env.Packages {
			platNames = append(platNames, p)
		}
		sort.Strings(platNames)

		for _, platName := range platNames {
			plat, err := platform.Parse(platName)
			if err != nil {
				return nil, fmt.Errorf("environment %q: %w", envName, err)
			}
			for _, pm := range env.Packages[platName] {
				pkg, err := pm.toPackage()
				if err != nil {
					return nil, fmt.Errorf("environment %q, platform %q: %w", envName, platName, err)
				}
				b.AddPackage(envName, plat, pkg)
			}
		}
	}
	return b.Finish(), nil
}

// Write persists a lock file to disk, replacing any previous content.
func Write(path string, lock *LockFile) error {
	data, err := Marshal(lock)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// Marshal encodes a lock file into its YAML form. Map keys are emitted in
// sorted order by the encoder, so the output is deterministic for a given
// lock file regardless of how it was assembled.
func Marshal(lock *LockFile) ([]byte, error) {
	model := fileModel{
		Version:      FileVersion,
		ManifestHash: lock.ManifestHash(),
		Environments: make(map[string]envModel, len(lock.envOrder)),
	}
	for _, envName := range lock.envOrder {
		env := lock.environments[envName]
		em := envModel{Packages: make(map[string][]packageModel, len(env.platOrder))}
		for _, plat := range env.platOrder {
			pkgs := env.packages[plat]
			models := make([]packageModel, 0, len(pkgs))
			for _, pkg := range pkgs {
				models = append(models, toModel(pkg))
			}
			em.Packages[string(plat)] = models
		}
		model.Environments[envName] = em
	}

	data, err := yaml.Marshal(&model)
	if err != nil {
		return nil, fmt.Errorf("encode lock file: %w", err)
	}
	return data, nil
}

func (pm packageModel) toPackage() (Package, error) {
	switch pm.Kind {
	case kindConda:
		return &CondaPackage{
			PackageName: NormalizeCondaName(pm.Name),
			Version:     pm.Version,
			Build:       pm.Build,
			Channel:     pm.Channel,
			Loc:         ParseLocation(pm.Location),
		}, nil
	case kindPypi:
		return &PypiPackage{
			PackageName: pm.Name,
			Version:     pm.Version,
			Extras:      pm.Extras,
			Loc:         ParseLocation(pm.Location),
		}, nil
	default:
		return nil, fmt.Errorf("unknown package kind %q for %q", pm.Kind, pm.Name)
	}
}

func toModel(pkg Package) packageModel {
	switch p := pkg.(type) {
	case *CondaPackage:
		return packageModel{
			Kind:     kindConda,
			Name:     p.Name(),
			Version:  p.Version,
			Build:    p.Build,
			Channel:  p.Channel,
			Location: p.Loc.String(),
		}
	case *PypiPackage:
		return packageModel{
			Kind:     kindPypi,
			Name:     p.PackageName,
			Version:  p.Version,
			Extras:   p.Extras,
			Location: p.Loc.String(),
		}
	default:
		panic(fmt.Sprintf("unknown package type %T", pkg))
	}
}
