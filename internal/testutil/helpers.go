// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"testing"

	"lockstep-cli/internal/lockfile"
)

// MustMatchSpec parses a conda match spec, failing the test on error.
func MustMatchSpec(t testing.TB, s string) lockfile.MatchSpec {
	t.Helper()
	spec, err := lockfile.ParseMatchSpec(s)
	if err != nil {
		t.Fatalf("parse match spec %q: %v", s, err)
	}
	return spec
}

// MustRequirement parses a PEP 508 requirement, failing the test on error.
func MustRequirement(t testing.TB, s string) lockfile.Requirement {
	t.Helper()
	req, err := lockfile.ParseRequirement(s)
	if err != nil {
		t.Fatalf("parse requirement %q: %v", s, err)
	}
	return req
}
