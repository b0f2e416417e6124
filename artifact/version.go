package artifact

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version (major.minor.patch).
type Version struct {
	Major int
	Minor int
	Patch int
}

// BumpLevel selects which version component a bump increments.
type BumpLevel string

// Bump levels.
const (
	BumpPatch BumpLevel = "patch"
	BumpMinor BumpLevel = "minor"
	BumpMajor BumpLevel = "major"
)

// ParseVersion parses a major.minor.patch string.
// Returns ErrInvalidVersion if the string is malformed.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (len(p) > 1 && p[0] == '0') {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParseVersion is ParseVersion that panics on error. For tests and
// literals known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the major.minor.patch form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Bump returns a new version with the given component incremented.
// A minor bump zeroes patch; a major bump zeroes minor and patch.
func (v Version) Bump(level BumpLevel) (Version, error) {
	switch level {
	case BumpPatch:
		return Version{v.Major, v.Minor, v.Patch + 1}, nil
	case BumpMinor:
		return Version{v.Major, v.Minor + 1, 0}, nil
	case BumpMajor:
		return Version{v.Major + 1, 0, 0}, nil
	default:
		return Version{}, fmt.Errorf("unknown bump level: %q", level)
	}
}

// Less reports whether v precedes other in version order.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// Bump parses a version string, bumps it at the given level, and returns
// the new string. Convenience for callers that work with raw identifiers.
func Bump(version string, level BumpLevel) (string, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return "", err
	}
	bumped, err := v.Bump(level)
	if err != nil {
		return "", err
	}
	return bumped.String(), nil
}
