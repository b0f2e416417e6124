package scoring

import "errors"

// Scoring errors.
var (
	// ErrEvaluationUnavailable indicates the external evaluator did not
	// return a result. This is a step failure, not a quality failure; it
	// must not consume the controller's retry budget.
	ErrEvaluationUnavailable = errors.New("evaluation unavailable")
)

// Issue kinds recorded on an EvaluationResult.
const (
	// IssueMissingCheck marks a matrix dimension the evaluator did not
	// report. The dimension contributes zero to the score.
	IssueMissingCheck = "MissingCheck"

	// IssueOutOfRange marks a dimension the evaluator reported outside
	// [0,1]. The raw score is clamped before weighting.
	IssueOutOfRange = "OutOfRange"
)
