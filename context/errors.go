package context

import "errors"

// Source assembly errors
var (
	// ErrSourceTooLarge indicates the gathered material exceeds the
	// extraction limits.
	ErrSourceTooLarge = errors.New("source material too large")
)
