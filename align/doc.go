// Package align decides whether an improvement round engaged with every
// dimension the preceding quality evaluation raised.
//
// The check is structural, not semantic: the improvement is aligned when
// the quality report's dimension keys are a subset of the feedback report's
// keys. A stricter engine might compare per-key content; this one
// deliberately preserves the subset rule.
package align
