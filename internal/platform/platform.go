// SPDX-License-Identifier: MPL-2.0

// Package platform identifies the OS/architecture targets that environments
// are resolved and materialized for. Identifiers follow the conda convention
// of "<os>-<arch>" (e.g. "linux-64", "osx-arm64") plus the pseudo-platform
// "noarch" for architecture-independent packages.
package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Known platform identifiers.
const (
	Linux64      Platform = "linux-64"
	LinuxAarch64 Platform = "linux-aarch64"
	LinuxPpc64le Platform = "linux-ppc64le"
	Osx64        Platform = "osx-64"
	OsxArm64     Platform = "osx-arm64"
	Win64        Platform = "win-64"
	WinArm64     Platform = "win-arm64"
	NoArch       Platform = "noarch"
)

// ErrUnknownPlatform is the sentinel error wrapped by UnknownPlatformError.
var ErrUnknownPlatform = errors.New("unknown platform")

type (
	// Platform is an OS/architecture identifier in conda notation.
	Platform string

	// UnknownPlatformError is returned when a platform string is not one of
	// the known identifiers. It wraps ErrUnknownPlatform for errors.Is().
	UnknownPlatformError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unknown platform %q", e.Value)
}

// Unwrap returns ErrUnknownPlatform so callers can use errors.Is.
func (e *UnknownPlatformError) Unwrap() error { return ErrUnknownPlatform }

// known lists every valid platform in a stable order.
var known = []Platform{
	Linux64, LinuxAarch64, LinuxPpc64le,
	Osx64, OsxArm64,
	Win64, WinArm64,
	NoArch,
}

// Known returns all valid platform identifiers in a stable order.
// The returned slice is a copy and safe to mutate.
func Known() []Platform {
	out := make([]Platform, len(known))
	copy(out, known)
	return out
}

// Parse validates a platform string against the known identifier set.
func Parse(s string) (Platform, error) {
	for _, p := range known {
		if string(p) == s {
			return p, nil
		}
	}
	return "", &UnknownPlatformError{Value: s}
}

// Current returns the platform identifier for the host the process runs on.
func Current() Platform {
	switch runtime.GOOS {
	case Linux:
		switch runtime.GOARCH {
		case "arm64":
			return LinuxAarch64
		case "ppc64le":
			return LinuxPpc64le
		default:
			return Linux64
		}
	case Darwin:
		if runtime.GOARCH == "arm64" {
			return OsxArm64
		}
		return Osx64
	case Windows:
		if runtime.GOARCH == "arm64" {
			return WinArm64
		}
		return Win64
	default:
		return Linux64
	}
}

// IsWindows reports whether the platform targets a Windows OS.
func (p Platform) IsWindows() bool {
	return p == Win64 || p == WinArm64
}

// String returns the conda-style identifier.
func (p Platform) String() string { return string(p) }
