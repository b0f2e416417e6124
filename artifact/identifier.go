package artifact

import (
	"fmt"
	"regexp"
	"strings"
)

// Ref identifies one stored artifact instance: a stable base name plus the
// stage and version it currently carries.
type Ref struct {
	Base    string  `json:"base"`
	Stage   Stage   `json:"stage"`
	Version Version `json:"version"`
	Ext     string  `json:"ext,omitempty"` // includes the dot, e.g. ".yaml"
}

// identifierRe matches <base>_<stage>_v<major>.<minor>.<patch>[.<ext>].
var identifierRe = regexp.MustCompile(
	`^(.+)_(raw|templ|config|active)_v(\d+\.\d+\.\d+)(\.[A-Za-z0-9]+)?$`)

// Parse decodes an artifact identifier.
// Returns ErrMalformedIdentifier unless the identifier encodes both a
// recognized stage token and a major.minor.patch version.
func Parse(identifier string) (Ref, error) {
	m := identifierRe.FindStringSubmatch(identifier)
	if m == nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, identifier)
	}

	version, err := ParseVersion(m[3])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, identifier)
	}

	return Ref{
		Base:    m[1],
		Stage:   Stage(m[2]),
		Version: version,
		Ext:     m[4],
	}, nil
}

// Format encodes the canonical identifier for r.
func (r Ref) Format() string {
	return fmt.Sprintf("%s_%s_v%s%s", r.Base, r.Stage, r.Version, r.Ext)
}

// String returns the canonical identifier.
func (r Ref) String() string {
	return r.Format()
}

// CleanBase strips any stage token and version suffix from a filename,
// returning the stable base name.
func CleanBase(name string) string {
	name = strings.TrimSuffix(name, ".yaml")
	name = strings.TrimSuffix(name, ".yml")
	if ref, err := Parse(name); err == nil {
		return ref.Base
	}
	// Fall back to stripping a bare version suffix.
	if i := strings.LastIndex(name, "_v"); i > 0 {
		if _, err := ParseVersion(name[i+2:]); err == nil {
			name = name[:i]
		}
	}
	return name
}
