package controller

// DefaultMaxRetries bounds the improvement loop when no limit is configured.
const DefaultMaxRetries = 3

// RetryState is the per-lineage bookkeeping for the bounded retry loop.
// It lives for one Run call and is never persisted across restarts.
type RetryState struct {
	RetryCount    int  `json:"retry_count"`
	MaxRetries    int  `json:"max_retries"`
	LastAlignment bool `json:"last_alignment_result"`
}

// Exhausted reports whether the retry budget is spent.
func (r RetryState) Exhausted() bool {
	return r.RetryCount >= r.MaxRetries
}

// consume records one retry attempt and its alignment result. Unaligned
// attempts still spend budget; the improved artifact is kept either way.
func (r *RetryState) consume(aligned bool) {
	r.RetryCount++
	r.LastAlignment = aligned
}
