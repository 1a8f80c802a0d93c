// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"testing"

	"lockstep-cli/internal/platform"
)

// numpyLock builds a lock file with a single conda numpy package in the
// default environment on linux-64.
func numpyLock() *LockFile {
	return NewBuilder().
		AddPackage("default", platform.Linux64, &CondaPackage{
			PackageName: "numpy",
			Version:     "1.26.0",
			Build:       "py311h64a7726_0",
			Channel:     "conda-forge",
			Loc:         LocationFromURL("https://conda.anaconda.org/conda-forge/linux-64/numpy-1.26.0-py311h64a7726_0.conda"),
		}).
		Finish()
}

func mustSpec(t *testing.T, s string) MatchSpec {
	t.Helper()
	spec, err := ParseMatchSpec(s)
	if err != nil {
		t.Fatalf("ParseMatchSpec(%q): %v", s, err)
	}
	return spec
}

func mustRequirement(t *testing.T, s string) Requirement {
	t.Helper()
	req, err := ParseRequirement(s)
	if err != nil {
		t.Fatalf("ParseRequirement(%q): %v", s, err)
	}
	return req
}

func TestContainsCondaPackage(t *testing.T) {
	t.Parallel()
	lock := numpyLock()

	if !lock.ContainsCondaPackage("default", platform.Linux64, "numpy") {
		t.Error("expected numpy to be locked in default/linux-64")
	}
	if !lock.ContainsCondaPackage("default", platform.Linux64, "NumPy") {
		t.Error("conda names are normalized; NumPy should match numpy")
	}
	if lock.ContainsCondaPackage("default", platform.Linux64, "scipy") {
		t.Error("scipy is not locked")
	}
}

func TestContainsCondaPackage_MissingSlotsCollapseToFalse(t *testing.T) {
	t.Parallel()
	lock := numpyLock()

	// Absent environment, absent platform and absent package are
	// indistinguishable: all answer false, none error.
	if lock.ContainsCondaPackage("nosuch", platform.Linux64, "numpy") {
		t.Error("absent environment must yield false")
	}
	if lock.ContainsCondaPackage("default", platform.Win64, "numpy") {
		t.Error("absent platform must yield false")
	}
}

func TestContainsMatchSpec(t *testing.T) {
	t.Parallel()
	lock := numpyLock()

	cases := []struct {
		spec string
		want bool
	}{
		{"numpy", true},
		{"numpy>=1.25,<2", true},
		{"numpy>=2", false},
		{"numpy ==1.26.0", true},
		{"numpy ==1.26.0 py311*", true},
		{"numpy ==1.26.0 py39*", false},
		{"conda-forge::numpy", true},
		{"bioconda::numpy", false},
		{"scipy", false},
	}
	for _, tc := range cases {
		if got := lock.ContainsMatchSpec("default", platform.Linux64, mustSpec(t, tc.spec)); got != tc.want {
			t.Errorf("ContainsMatchSpec(%q) = %v, want %v", tc.spec, got, tc.want)
		}
	}
}

func TestContainsMatchSpec_NameOnlyAlwaysMatchesLockedName(t *testing.T) {
	t.Parallel()
	lock := NewBuilder().
		AddPackage("default", platform.Linux64, &CondaPackage{PackageName: "numpy", Version: "1.26.0"}).
		AddPackage("default", platform.Linux64, &CondaPackage{PackageName: "scipy", Version: "1.11.4"}).
		AddPackage("py39", platform.OsxArm64, &CondaPackage{PackageName: "python", Version: "3.9.18"}).
		Finish()

	for _, env := range lock.EnvironmentNames() {
		e, _ := lock.Environment(env)
		for _, plat := range e.Platforms() {
			pkgs, _ := e.Packages(plat)
			for _, pkg := range pkgs {
				if !lock.ContainsMatchSpec(env, plat, mustSpec(t, pkg.Name())) {
					t.Errorf("name-only spec %q must match its own package in %s/%s", pkg.Name(), env, plat)
				}
			}
		}
	}
}

func TestContainsPypiPackage(t *testing.T) {
	t.Parallel()
	lock := NewBuilder().
		AddPackage("default", platform.Linux64, &PypiPackage{PackageName: "requests", Version: "2.31.0"}).
		AddPackage("default", platform.Linux64, &CondaPackage{PackageName: "requests", Version: "2.31.0"}).
		Finish()

	if !lock.ContainsPypiPackage("default", platform.Linux64, "requests") {
		t.Error("expected pypi requests to be locked")
	}
	// Pypi names are compared byte for byte, not normalized.
	if lock.ContainsPypiPackage("default", platform.Linux64, "Requests") {
		t.Error("pypi name comparison must be exact")
	}
	if lock.ContainsPypiPackage("nosuch", platform.Linux64, "requests") {
		t.Error("absent environment must yield false")
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	t.Parallel()
	// The same name may appear once in each namespace within one slot.
	lock := NewBuilder().
		AddPackage("default", platform.Linux64, &CondaPackage{PackageName: "pip", Version: "24.0"}).
		AddPackage("default", platform.Linux64, &PypiPackage{PackageName: "pip", Version: "24.0"}).
		Finish()

	if !lock.ContainsCondaPackage("default", platform.Linux64, "pip") {
		t.Error("conda pip should be present")
	}
	if !lock.ContainsPypiPackage("default", platform.Linux64, "pip") {
		t.Error("pypi pip should be present")
	}
	env, _ := lock.Environment("default")
	pkgs, _ := env.Packages(platform.Linux64)
	if len(pkgs) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(pkgs))
	}
}

func TestBuilder_SameNamespaceNameReplaces(t *testing.T) {
	t.Parallel()
	lock := NewBuilder().
		AddPackage("default", platform.Linux64, &CondaPackage{PackageName: "numpy", Version: "1.25.0"}).
		AddPackage("default", platform.Linux64, &CondaPackage{PackageName: "numpy", Version: "1.26.0"}).
		Finish()

	env, _ := lock.Environment("default")
	pkgs, _ := env.Packages(platform.Linux64)
	if len(pkgs) != 1 {
		t.Fatalf("expected duplicate conda name to replace, got %d packages", len(pkgs))
	}
	if !lock.ContainsMatchSpec("default", platform.Linux64, mustSpec(t, "numpy ==1.26.0")) {
		t.Error("replacement should keep the later version")
	}
}

func TestContainsPEP508Requirement(t *testing.T) {
	t.Parallel()
	lock := NewBuilder().
		AddPackage("default", platform.Linux64, &PypiPackage{
			PackageName: "flask",
			Version:     "3.0.2",
			Extras:      []string{"async"},
		}).
		Finish()

	cases := []struct {
		req  string
		want bool
	}{
		{"flask", true},
		{"flask>=3", true},
		{"flask<3", false},
		{"Flask", true}, // requirement names are PEP 503 normalized
		{"flask[async]", true},
		{"flask[dotenv]", false},
		{"flask ; python_version >= \"3.9\"", true}, // markers retained, not evaluated
		{"django", false},
	}
	for _, tc := range cases {
		if got := lock.ContainsPEP508Requirement("default", platform.Linux64, mustRequirement(t, tc.req)); got != tc.want {
			t.Errorf("ContainsPEP508Requirement(%q) = %v, want %v", tc.req, got, tc.want)
		}
	}

	if lock.ContainsPEP508Requirement("nosuch", platform.Linux64, mustRequirement(t, "flask")) {
		t.Error("absent environment must yield false")
	}
}

func TestPypiPackageVersion(t *testing.T) {
	t.Parallel()
	lock := NewBuilder().
		AddPackage("default", platform.Linux64, &PypiPackage{PackageName: "requests", Version: "2.31.0"}).
		Finish()

	v, ok := lock.PypiPackageVersion("default", platform.Linux64, "requests")
	if !ok || v != "2.31.0" {
		t.Errorf("expected (2.31.0, true), got (%q, %v)", v, ok)
	}

	// Environment with no pypi packages: absent, not an error.
	if _, ok := numpyLock().PypiPackageVersion("default", platform.Linux64, "requests"); ok {
		t.Error("expected absent version for unlocked pypi package")
	}
	if _, ok := lock.PypiPackageVersion("nosuch", platform.Linux64, "requests"); ok {
		t.Error("expected absent version for missing environment")
	}
}

func TestPackageLocation_SpansBothNamespaces(t *testing.T) {
	t.Parallel()
	lock := NewBuilder().
		AddPackage("default", platform.Linux64, &CondaPackage{
			PackageName: "numpy",
			Version:     "1.26.0",
			Loc:         LocationFromURL("https://conda.anaconda.org/conda-forge/linux-64/numpy-1.26.0.conda"),
		}).
		AddPackage("default", platform.Linux64, &PypiPackage{
			PackageName: "requests",
			Version:     "2.31.0",
			Loc:         LocationFromPath("./wheels/requests-2.31.0-py3-none-any.whl"),
		}).
		Finish()

	loc, ok := lock.PackageLocation("default", platform.Linux64, "numpy")
	if !ok || !loc.IsURL() {
		t.Errorf("expected conda URL location, got (%v, %v)", loc, ok)
	}
	loc, ok = lock.PackageLocation("default", platform.Linux64, "requests")
	if !ok || !loc.IsPath() {
		t.Errorf("expected pypi path location, got (%v, %v)", loc, ok)
	}
	if _, ok := lock.PackageLocation("default", platform.Linux64, "scipy"); ok {
		t.Error("expected absent location for unknown name")
	}
}
