// SPDX-License-Identifier: MPL-2.0

package prefix

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lockstep-cli/internal/lockfile"
)

type (
	// Record is the persisted per-package installation marker. Comparing
	// records against the lock file decides whether a prefix is consistent.
	Record struct {
		Kind     string   `json:"kind"`
		Name     string   `json:"name"`
		Version  string   `json:"version"`
		Build    string   `json:"build,omitempty"`
		Channel  string   `json:"channel,omitempty"`
		Extras   []string `json:"extras,omitempty"`
		Location string   `json:"location,omitempty"`
	}

	// Installer places one locked package into a prefix and removes stale
	// ones. Fetching and unpacking real package archives is an external
	// collaborator's concern; the default installer materializes the
	// installation records that consistency checks run against.
	Installer interface {
		Install(ctx context.Context, p *Prefix, pkg lockfile.Package) error
		Remove(ctx context.Context, p *Prefix, rec Record) error
	}

	recordInstaller struct{}
)

// NewRecordInstaller returns the default installer.
func NewRecordInstaller() Installer { return recordInstaller{} }

// RecordOf derives the installation record a package should leave behind.
func RecordOf(pkg lockfile.Package) Record {
	switch p := pkg.(type) {
	case *lockfile.CondaPackage:
		return Record{
			Kind:     "conda",
			Name:     p.Name(),
			Version:  p.Version,
			Build:    p.Build,
			Channel:  p.Channel,
			Location: p.Loc.String(),
		}
	case *lockfile.PypiPackage:
		return Record{
			Kind:     "pypi",
			Name:     p.PackageName,
			Version:  p.Version,
			Extras:   p.Extras,
			Location: p.Loc.String(),
		}
	default:
		panic(fmt.Sprintf("unknown package type %T", pkg))
	}
}

// FileName returns the record's file name inside the records directory.
// Kind and name together are unique per slot (the two namespaces are
// independent), so they key the file.
func (r Record) FileName() string {
	return fmt.Sprintf("%s-%s.json", r.Kind, r.Name)
}

// Matches reports whether two records describe the same installed artifact.
func (r Record) Matches(other Record) bool {
	if r.Kind != other.Kind || r.Name != other.Name || r.Version != other.Version {
		return false
	}
	if r.Build != other.Build || r.Channel != other.Channel || r.Location != other.Location {
		return false
	}
	if len(r.Extras) != len(other.Extras) {
		return false
	}
	for i := range r.Extras {
		if r.Extras[i] != other.Extras[i] {
			return false
		}
	}
	return true
}

func (recordInstaller) Install(ctx context.Context, p *Prefix, pkg lockfile.Package) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("install canceled: %w", ctx.Err())
	default:
	}
	rec := RecordOf(pkg)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record for %s: %w", rec.Name, err)
	}
	path := filepath.Join(p.RecordsDir(), rec.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("install %s into %s: %w", rec.Name, p.Environment, err)
	}
	return nil
}

func (recordInstaller) Remove(_ context.Context, p *Prefix, rec Record) error {
	path := filepath.Join(p.RecordsDir(), rec.FileName())
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s from %s: %w", rec.Name, p.Environment, err)
	}
	return nil
}

// readRecords loads all installation records currently present in a prefix,
// keyed by record file name. A missing records directory yields an empty map.
func readRecords(p *Prefix) (map[string]Record, error) {
	entries, err := os.ReadDir(p.RecordsDir())
	if os.IsNotExist(err) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefix records: %w", err)
	}
	records := make(map[string]Record, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.RecordsDir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read prefix record %s: %w", entry.Name(), err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			// A corrupt record is treated as absent so revalidation
			// repairs it instead of failing the run.
			continue
		}
		records[entry.Name()] = rec
	}
	return records, nil
}
