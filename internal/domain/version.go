package domain

import (
	"fmt"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// ParseVersion parses a mod version string using PEP 440 ordering rules,
// which accept every semantic version Everest mods publish.
func ParseVersion(v string) (pep440.Version, error) {
	parsed, err := pep440.Parse(strings.TrimSpace(v))
	if err != nil {
		return pep440.Version{}, fmt.Errorf("%w %q: %v", ErrInvalidVersion, v, err)
	}
	return parsed, nil
}

// CompareVersions returns -1, 0 or 1 comparing v1 with v2
func CompareVersions(v1, v2 string) (int, error) {
	a, err := ParseVersion(v1)
	if err != nil {
		return 0, err
	}
	b, err := ParseVersion(v2)
	if err != nil {
		return 0, err
	}
	return a.Compare(b), nil
}

// IsNewerVersion reports whether newVersion is strictly greater than currentVersion
func IsNewerVersion(currentVersion, newVersion string) (bool, error) {
	cmp, err := CompareVersions(newVersion, currentVersion)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}
