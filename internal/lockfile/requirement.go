// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// ErrInvalidRequirement is the sentinel error wrapped by InvalidRequirementError.
var ErrInvalidRequirement = errors.New("invalid requirement")

type (
	// Requirement is a parsed PEP 508-style constraint over pypi package
	// attributes: a distribution name, optional extras, an optional PEP 440
	// version specifier set and optional environment markers. Markers are
	// retained verbatim but do not participate in satisfaction checks; the
	// solver applies them at lock time.
	Requirement struct {
		// Name is the PEP 503 normalized distribution name.
		Name string
		// Extras are the requested extras, normalized to lowercase.
		Extras []string
		// Markers holds the raw text after ";", if any.
		Markers string

		specifier    pep440.Specifiers
		hasSpecifier bool
		rawSpecifier string
	}

	// InvalidRequirementError is returned when a requirement string cannot
	// be parsed. It wraps ErrInvalidRequirement for errors.Is().
	InvalidRequirementError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidRequirementError) Error() string {
	return fmt.Sprintf("invalid requirement %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidRequirement so callers can use errors.Is.
func (e *InvalidRequirementError) Unwrap() error { return ErrInvalidRequirement }

// requirementNameRe matches the leading distribution name of a requirement.
var requirementNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// ParseRequirement parses a PEP 508-style requirement:
//
//	name[extra1,extra2] >=1.0,<2 ; python_version >= "3.9"
//
// Unlike ParseMatchSpec this parse is strict: a malformed specifier or
// extras list is an error, because requirement strings come from manifests
// rather than ad-hoc query input.
func ParseRequirement(s string) (Requirement, error) {
	var req Requirement

	rest := strings.TrimSpace(s)
	if before, markers, ok := strings.Cut(rest, ";"); ok {
		req.Markers = strings.TrimSpace(markers)
		rest = strings.TrimSpace(before)
	}

	name := requirementNameRe.FindString(rest)
	if name == "" {
		return Requirement{}, &InvalidRequirementError{Value: s, Reason: "no distribution name"}
	}
	req.Name = NormalizePypiName(name)
	rest = strings.TrimSpace(rest[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return Requirement{}, &InvalidRequirementError{Value: s, Reason: "unterminated extras"}
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.ToLower(strings.TrimSpace(extra))
			if extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	rest = strings.TrimSpace(rest)
	if rest != "" {
		specs, err := pep440.NewSpecifiers(rest)
		if err != nil {
			return Requirement{}, &InvalidRequirementError{Value: s, Reason: fmt.Sprintf("bad version specifier: %v", err)}
		}
		req.specifier = specs
		req.hasSpecifier = true
		req.rawSpecifier = rest
	}

	return req, nil
}

// specifierMatches reports whether a package version string falls inside the
// requirement's specifier set. Requirements without a specifier match any
// version; unparseable package versions never match a present specifier.
func (r Requirement) specifierMatches(pkgVersion string) bool {
	if !r.hasSpecifier {
		return true
	}
	v, err := pep440.Parse(pkgVersion)
	if err != nil {
		return false
	}
	return r.specifier.Check(v)
}

// HasSpecifier reports whether the requirement carries a version specifier.
func (r Requirement) HasSpecifier() bool { return r.hasSpecifier }

// String reconstructs a canonical requirement string.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteString("]")
	}
	if r.rawSpecifier != "" {
		b.WriteString(" ")
		b.WriteString(r.rawSpecifier)
	}
	if r.Markers != "" {
		b.WriteString(" ; ")
		b.WriteString(r.Markers)
	}
	return b.String()
}
