// SPDX-License-Identifier: MPL-2.0

package lockfile

import "strings"

type (
	// Location identifies where a locked package's contents come from:
	// either a remote URL or a local filesystem path. Exactly one form is
	// populated; the zero value is an empty location.
	Location struct {
		value string
		isURL bool
	}
)

// LocationFromURL builds a Location backed by a remote URL.
func LocationFromURL(url string) Location {
	return Location{value: url, isURL: true}
}

// LocationFromPath builds a Location backed by a local filesystem path.
func LocationFromPath(path string) Location {
	return Location{value: path}
}

// ParseLocation classifies a raw location string: anything with a URL scheme
// is treated as a URL, everything else as a local path.
func ParseLocation(raw string) Location {
	if i := strings.Index(raw, "://"); i > 0 {
		return LocationFromURL(raw)
	}
	return LocationFromPath(raw)
}

// IsURL reports whether the location is a remote URL.
func (l Location) IsURL() bool { return l.isURL }

// IsPath reports whether the location is a local filesystem path.
func (l Location) IsPath() bool { return !l.isURL && l.value != "" }

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool { return l.value == "" }

// String returns the raw URL or path.
func (l Location) String() string { return l.value }
