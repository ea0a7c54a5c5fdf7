package edge

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a Major.Minor.Build.Revision tuple. The zero value means the
// version has not been resolved.
type Version [4]int

// Unresolved is the sentinel for "no version known".
var Unresolved = Version{}

var versionPattern = regexp.MustCompile(`\d{1,5}\.\d{1,5}\.\d{1,5}\.\d{1,5}`)

// ParseVersion parses a dotted four component version.
func ParseVersion(s string) (Version, error) {
	var v Version

	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != len(v) {
		return Unresolved, &ParseError{Field: "version", Value: s}
	}

	for i, part := range parts {
		if !isDigits(part) {
			return Unresolved, &ParseError{Field: "version", Value: s}
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return Unresolved, &ParseError{Field: "version", Value: s, Err: err}
		}

		v[i] = n
	}

	return v, nil
}

// isDigits reports whether s is a non-empty run of ASCII digits. Signs are
// not part of a version component.
func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

// VersionFromURL extracts the first four component version embedded in a URL.
// It returns false when none is present.
func VersionFromURL(u string) (Version, bool) {
	m := versionPattern.FindString(u)
	if m == "" {
		return Unresolved, false
	}

	v, err := ParseVersion(m)
	if err != nil {
		return Unresolved, false
	}

	return v, true
}

func (v Version) Major() int    { return v[0] }
func (v Version) Minor() int    { return v[1] }
func (v Version) Build() int    { return v[2] }
func (v Version) Revision() int { return v[3] }

// IsResolved reports whether v differs from the unresolved sentinel.
func (v Version) IsResolved() bool {
	return v != Unresolved
}

// WithBuild returns v with the build component replaced.
func (v Version) WithBuild(build int) Version {
	v[2] = build
	return v
}

// WithMajor returns v with the major component replaced.
func (v Version) WithMajor(major int) Version {
	v[0] = major
	return v
}

// Compare orders versions lexicographically over the four components.
func (v Version) Compare(other Version) int {
	for i := range v {
		if c := cmp.Compare(v[i], other[i]); c != 0 {
			return c
		}
	}

	return 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}
