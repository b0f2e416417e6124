package artifact

import "errors"

// Artifact naming errors. Both are data-integrity failures: callers abort
// the current lifecycle attempt rather than retrying.
var (
	// ErrMalformedIdentifier indicates an identifier that does not encode
	// both a recognized stage token and a semantic version.
	ErrMalformedIdentifier = errors.New("malformed artifact identifier")

	// ErrInvalidVersion indicates a version string that is not major.minor.patch.
	ErrInvalidVersion = errors.New("invalid semantic version")
)
