package scoring

import (
	"context"
	"fmt"
)

// Report is what the external evaluator returns: raw per-dimension scores
// in [0,1], free-text feedback, and any issues it noticed itself.
type Report struct {
	Scores   map[string]float64
	Feedback string
	Issues   []string
}

// Evaluator is the external evaluation collaborator. Implementations must
// return scores for as many declared dimensions as they can; the gate
// degrades gracefully over the rest.
type Evaluator interface {
	Evaluate(ctx context.Context, content []byte, matrix Matrix) (*Report, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, content []byte, matrix Matrix) (*Report, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, content []byte, matrix Matrix) (*Report, error) {
	return f(ctx, content, matrix)
}

// Issue records one problem surfaced during evaluation.
type Issue struct {
	Kind      string `json:"kind"`
	Dimension string `json:"dimension,omitempty"`
	Message   string `json:"message,omitempty"`
}

// EvaluationResult is the gate's normalized verdict.
type EvaluationResult struct {
	// Score is the total weighted score in [0,1].
	Score float64 `json:"score"`
	// PerDimension holds each matrix dimension's weighted contribution.
	PerDimension map[string]float64 `json:"per_dimension"`
	// Feedback is the evaluator's free-text feedback.
	Feedback string `json:"feedback,omitempty"`
	// PassThreshold reports Score >= the gate threshold.
	PassThreshold bool `json:"pass_threshold"`
	// Issues lists missing checks and evaluator-reported problems.
	Issues []Issue `json:"issues,omitempty"`
}

// FlaggedDimensions returns the dimensions whose raw score fell below 1 or
// that the evaluator failed to report. These are the keys the alignment
// check expects the following improvement round to address.
func (r EvaluationResult) FlaggedDimensions() []string {
	var flagged []string
	for _, issue := range r.Issues {
		if issue.Dimension != "" {
			flagged = append(flagged, issue.Dimension)
		}
	}
	return flagged
}

// DefaultThreshold is the pass threshold used when none is configured.
const DefaultThreshold = 0.90

// Gate normalizes evaluator reports against a matrix and threshold.
type Gate struct {
	evaluator Evaluator
	threshold float64
}

// NewGate creates a scoring gate. A zero threshold selects DefaultThreshold.
func NewGate(evaluator Evaluator, threshold float64) *Gate {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Gate{evaluator: evaluator, threshold: threshold}
}

// Threshold returns the configured pass threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Evaluate invokes the external evaluator and normalizes its report.
//
// For every dimension the matrix declares but the report omits, the
// dimension contributes zero and a MissingCheck issue is recorded. Raw
// scores outside [0,1] are clamped and recorded as OutOfRange issues so one
// inflated dimension cannot push the weighted total past 1. The total
// weighted score is Σ score_i*weight_i / Σ weight_i over the matrix's own
// dimensions, defined as 0 when the weight sum is 0. The gate performs no
// side effects beyond the evaluator call.
func (g *Gate) Evaluate(ctx context.Context, content []byte, matrix Matrix) (*EvaluationResult, error) {
	report, err := g.evaluator.Evaluate(ctx, content, matrix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluationUnavailable, err)
	}
	if report == nil {
		return nil, ErrEvaluationUnavailable
	}

	result := &EvaluationResult{
		PerDimension: make(map[string]float64, len(matrix.Dimensions)),
		Feedback:     report.Feedback,
	}
	for _, msg := range report.Issues {
		result.Issues = append(result.Issues, Issue{Kind: "Evaluator", Message: msg})
	}

	weightSum := matrix.WeightSum()
	var weighted float64
	for _, name := range matrix.DimensionNames() {
		dim := matrix.Dimensions[name]
		raw, ok := report.Scores[name]
		if !ok {
			raw = 0
			result.Issues = append(result.Issues, Issue{
				Kind:      IssueMissingCheck,
				Dimension: name,
				Message:   fmt.Sprintf("evaluator did not report dimension %q", name),
			})
		} else if raw < 0 || raw > 1 {
			clamped := min(max(raw, 0), 1)
			result.Issues = append(result.Issues, Issue{
				Kind:      IssueOutOfRange,
				Dimension: name,
				Message:   fmt.Sprintf("evaluator reported %v for dimension %q, clamped to %v", raw, name, clamped),
			})
			raw = clamped
			if raw < 1 {
				result.Issues = append(result.Issues, Issue{
					Kind:      "BelowTarget",
					Dimension: name,
					Message:   dim.Feedback,
				})
			}
		} else if raw < 1 {
			result.Issues = append(result.Issues, Issue{
				Kind:      "BelowTarget",
				Dimension: name,
				Message:   dim.Feedback,
			})
		}
		contribution := raw * dim.Weight
		result.PerDimension[name] = contribution
		weighted += contribution
	}

	if weightSum > 0 {
		result.Score = weighted / weightSum
	}
	result.PassThreshold = result.Score >= g.threshold
	return result, nil
}
