package agent

import (
	"context"
	"log/slog"

	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/scoring"
)

// HybridEvaluator asks the model first and falls back to the deterministic
// checks when the model is unavailable or returns an unparseable response.
// The fallback keeps a lineage moving instead of aborting on a transient
// model outage.
type HybridEvaluator struct {
	primary  *LLMEvaluator
	fallback *HeuristicEvaluator
}

// NewHybridEvaluator creates the fallback pair.
func NewHybridEvaluator(primary *LLMEvaluator, fallback *HeuristicEvaluator) *HybridEvaluator {
	return &HybridEvaluator{primary: primary, fallback: fallback}
}

// Evaluate implements scoring.Evaluator.
func (e *HybridEvaluator) Evaluate(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
	report, err := e.primary.Evaluate(ctx, content, matrix)
	if err == nil {
		return report, nil
	}
	slog.Warn("model evaluation failed, using heuristic fallback",
		"matrix", matrix.Name,
		"error", err)
	return e.fallback.Evaluate(ctx, content, matrix)
}

// HybridImprover mirrors HybridEvaluator for the improvement side.
type HybridImprover struct {
	primary  *LLMImprover
	fallback *HeuristicImprover
}

// NewHybridImprover creates the fallback pair.
func NewHybridImprover(primary *LLMImprover, fallback *HeuristicImprover) *HybridImprover {
	return &HybridImprover{primary: primary, fallback: fallback}
}

// Improve implements controller.Improver.
func (i *HybridImprover) Improve(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*controller.ImproveResult, error) {
	improved, err := i.primary.Improve(ctx, content, result)
	if err == nil {
		return improved, nil
	}
	slog.Warn("model improvement failed, using heuristic fallback", "error", err)
	return i.fallback.Improve(ctx, content, result)
}
