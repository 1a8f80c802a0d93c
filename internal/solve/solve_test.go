// SPDX-License-Identifier: MPL-2.0

package solve

import (
	"context"
	"testing"

	"lockstep-cli/internal/manifest"
	"lockstep-cli/internal/platform"
)

func TestPinVersion(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{"==1.26.0", "1.26.0"},
		{"=1.26", "1.26"},
		{">=1.25,<2", "1.25"},
		{">=3.11", "3.11"},
		{"1.26.*", "1.26"},
		{"*", "0.1.0"},
		{"", "0.1.0"},
		{"<2", "0.1.0"},
	}
	for _, tc := range cases {
		if got := PinVersion(tc.in); got != tc.want {
			t.Errorf("PinVersion(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPinningSolver_LocksEveryEnvironmentAndPlatform(t *testing.T) {
	t.Parallel()
	m, err := manifest.Parse([]byte(`
[workspace]
name = "sample"
channels = ["conda-forge"]
platforms = ["linux-64", "osx-arm64"]

[dependencies]
python = ">=3.11"

[pypi-dependencies]
requests = ">=2.28"

[feature.cuda]
platforms = ["linux-64"]
[feature.cuda.dependencies]
cudatoolkit = "==12.1"

[environments.gpu]
features = ["cuda"]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	lock, err := PinningSolver{}.Solve(context.Background(), m, "deadbeef")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if lock.ManifestHash() != "deadbeef" {
		t.Errorf("manifest hash = %q", lock.ManifestHash())
	}

	for _, plat := range []platform.Platform{platform.Linux64, platform.OsxArm64} {
		if !lock.ContainsCondaPackage("default", plat, "python") {
			t.Errorf("python missing from default/%s", plat)
		}
		if !lock.ContainsPypiPackage("default", plat, "requests") {
			t.Errorf("requests missing from default/%s", plat)
		}
	}
	// The cuda feature narrows gpu to linux-64.
	if !lock.ContainsCondaPackage("gpu", platform.Linux64, "cudatoolkit") {
		t.Error("cudatoolkit missing from gpu/linux-64")
	}
	if lock.ContainsCondaPackage("gpu", platform.OsxArm64, "cudatoolkit") {
		t.Error("gpu must not be locked for osx-arm64")
	}
	v, ok := lock.PypiPackageVersion("default", platform.Linux64, "requests")
	if !ok || v != "2.28" {
		t.Errorf("requests pinned to (%q, %v), want 2.28", v, ok)
	}
}

func TestPinningSolver_Deterministic(t *testing.T) {
	t.Parallel()
	m, err := manifest.Parse([]byte(`
[workspace]
name = "det"
platforms = ["linux-64"]

[dependencies]
zlib = "*"
python = ">=3.11"
numpy = ">=1.25"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	first, err := PinningSolver{}.Solve(context.Background(), m, "h")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	env, _ := first.Environment("default")
	pkgs, _ := env.Packages(platform.Linux64)
	if len(pkgs) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(pkgs))
	}
	// Insertion order is sorted by name, so repeated solves agree.
	wantOrder := []string{"numpy", "python", "zlib"}
	for i, pkg := range pkgs {
		if pkg.Name() != wantOrder[i] {
			t.Errorf("package %d = %q, want %q", i, pkg.Name(), wantOrder[i])
		}
	}
}
