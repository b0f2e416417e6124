package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/scoring"
)

// placeholderMarkers flag unfinished artifact content.
var placeholderMarkers = []string{"TODO", "FIXME", "???", "<fill", "tbd:"}

// HeuristicConfig tunes the deterministic strategy.
type HeuristicConfig struct {
	// MinLength is the content length below which artifacts are penalized
	// (default 80 bytes).
	MinLength int

	// RequiredSections are substrings the content must contain, e.g. a
	// role line or an output-format block. Optional.
	RequiredSections []string
}

func (c HeuristicConfig) minLength() int {
	if c.MinLength <= 0 {
		return 80
	}
	return c.MinLength
}

// HeuristicEvaluator scores artifacts with deterministic text checks. Every
// matrix dimension receives the same raw score; the gate applies weights.
type HeuristicEvaluator struct {
	cfg HeuristicConfig
}

// NewHeuristicEvaluator creates a deterministic evaluator.
func NewHeuristicEvaluator(cfg HeuristicConfig) *HeuristicEvaluator {
	return &HeuristicEvaluator{cfg: cfg}
}

// Evaluate implements scoring.Evaluator.
func (e *HeuristicEvaluator) Evaluate(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
	score, failures := e.check(string(content))

	report := &scoring.Report{
		Scores: make(map[string]float64, len(matrix.Dimensions)),
	}
	for name := range matrix.Dimensions {
		report.Scores[name] = score
	}
	if len(failures) > 0 {
		report.Feedback = strings.Join(failures, "; ")
		report.Issues = failures
	}
	return report, nil
}

// check runs the text checks and returns the fraction that passed.
func (e *HeuristicEvaluator) check(content string) (float64, []string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0, []string{"content is empty"}
	}

	var failures []string
	checks := 2 + len(e.cfg.RequiredSections)

	if len(trimmed) < e.cfg.minLength() {
		failures = append(failures, fmt.Sprintf("content shorter than %d bytes", e.cfg.minLength()))
	}
	if marker := findPlaceholder(trimmed); marker != "" {
		failures = append(failures, fmt.Sprintf("unfinished placeholder %q", marker))
	}
	for _, section := range e.cfg.RequiredSections {
		if !strings.Contains(trimmed, section) {
			failures = append(failures, fmt.Sprintf("missing section %q", section))
		}
	}

	passed := checks - len(failures)
	return float64(passed) / float64(checks), failures
}

func findPlaceholder(content string) string {
	for _, marker := range placeholderMarkers {
		if strings.Contains(content, marker) {
			return marker
		}
	}
	return ""
}

// HeuristicImprover rewrites artifacts deterministically: placeholder lines
// are dropped and each flagged dimension gets a guidance note appended from
// the matrix feedback the evaluation carried.
type HeuristicImprover struct {
	cfg HeuristicConfig
}

// NewHeuristicImprover creates a deterministic improver.
func NewHeuristicImprover(cfg HeuristicConfig) *HeuristicImprover {
	return &HeuristicImprover{cfg: cfg}
}

// Improve implements controller.Improver.
func (i *HeuristicImprover) Improve(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*controller.ImproveResult, error) {
	lines := strings.Split(string(content), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if findPlaceholder(line) != "" {
			continue
		}
		kept = append(kept, line)
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(strings.Join(kept, "\n"), "\n"))

	flagged := result.FlaggedDimensions()
	if len(flagged) > 0 {
		b.WriteString("\n\n# review notes\n")
		for _, dim := range flagged {
			b.WriteString("# ")
			b.WriteString(dim)
			if fb := feedbackFor(result, dim); fb != "" {
				b.WriteString(": ")
				b.WriteString(fb)
			}
			b.WriteString("\n")
		}
	}

	return &controller.ImproveResult{
		Content:   []byte(b.String()),
		Addressed: flagged,
		Rationale: "dropped placeholders, annotated flagged dimensions",
	}, nil
}

// feedbackFor returns the issue message recorded for a dimension, if any.
func feedbackFor(result *scoring.EvaluationResult, dimension string) string {
	for _, issue := range result.Issues {
		if issue.Dimension == dimension && issue.Message != "" {
			return issue.Message
		}
	}
	return ""
}
