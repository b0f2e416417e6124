package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
)

func testMatrix() Matrix {
	return Matrix{
		Name: "template",
		Dimensions: map[string]Dimension{
			"task_clarity": {Weight: 1.0, Feedback: "Define goals explicitly and simply."},
			"output_spec":  {Weight: 1.0, Feedback: "Define expected structure."},
			"evalability":  {Weight: 2.0, Feedback: "Guide format for better assessability."},
		},
	}
}

func fixedEvaluator(report *Report, err error) Evaluator {
	return EvaluatorFunc(func(ctx context.Context, content []byte, matrix Matrix) (*Report, error) {
		return report, err
	})
}

func TestGate_Evaluate_WeightedScore(t *testing.T) {
	gate := NewGate(fixedEvaluator(&Report{
		Scores: map[string]float64{
			"task_clarity": 1.0,
			"output_spec":  0.5,
			"evalability":  1.0,
		},
	}, nil), 0.85)

	result, err := gate.Evaluate(context.Background(), []byte("prompt"), testMatrix())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// (1.0*1 + 0.5*1 + 1.0*2) / 4 = 0.875
	if math.Abs(result.Score-0.875) > 1e-9 {
		t.Errorf("score = %v, want 0.875", result.Score)
	}
	if !result.PassThreshold {
		t.Error("0.875 should pass threshold 0.85")
	}
	if got := result.PerDimension["evalability"]; math.Abs(got-2.0) > 1e-9 {
		t.Errorf("evalability contribution = %v, want 2.0", got)
	}
}

func TestGate_Evaluate_MissingDimensionDegradesGracefully(t *testing.T) {
	gate := NewGate(fixedEvaluator(&Report{
		Scores: map[string]float64{
			"task_clarity": 1.0,
			"output_spec":  1.0,
			// evalability not reported
		},
	}, nil), 0.90)

	result, err := gate.Evaluate(context.Background(), []byte("prompt"), testMatrix())
	if err != nil {
		t.Fatalf("Evaluate must not fail on missing dimensions: %v", err)
	}

	// (1 + 1 + 0*2) / 4 = 0.5
	if math.Abs(result.Score-0.5) > 1e-9 {
		t.Errorf("score = %v, want 0.5", result.Score)
	}

	var missing []string
	for _, issue := range result.Issues {
		if issue.Kind == IssueMissingCheck {
			missing = append(missing, issue.Dimension)
		}
	}
	if len(missing) != 1 || missing[0] != "evalability" {
		t.Errorf("MissingCheck issues = %v, want [evalability]", missing)
	}
}

func TestGate_Evaluate_ClampsOutOfRangeScores(t *testing.T) {
	gate := NewGate(fixedEvaluator(&Report{
		Scores: map[string]float64{
			"task_clarity": 1.5,
			"output_spec":  -0.5,
			"evalability":  1.0,
		},
	}, nil), 0.90)

	result, err := gate.Evaluate(context.Background(), []byte("prompt"), testMatrix())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// Clamped: (1.0*1 + 0.0*1 + 1.0*2) / 4 = 0.75. An inflated dimension
	// must not buy back points another dimension lost.
	if math.Abs(result.Score-0.75) > 1e-9 {
		t.Errorf("score = %v, want 0.75", result.Score)
	}
	if result.PassThreshold {
		t.Error("clamped 0.75 must not pass threshold 0.90")
	}
	if got := result.PerDimension["task_clarity"]; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("task_clarity contribution = %v, want clamped 1.0", got)
	}

	outOfRange := map[string]bool{}
	for _, issue := range result.Issues {
		if issue.Kind == IssueOutOfRange {
			outOfRange[issue.Dimension] = true
		}
	}
	if !outOfRange["task_clarity"] || !outOfRange["output_spec"] {
		t.Errorf("OutOfRange issues = %v, want task_clarity and output_spec", outOfRange)
	}
}

func TestGate_Evaluate_ScoreNeverExceedsOne(t *testing.T) {
	matrix := Matrix{
		Name:       "single",
		Dimensions: map[string]Dimension{"only": {Weight: 1.0}},
	}
	gate := NewGate(fixedEvaluator(&Report{Scores: map[string]float64{"only": 3.0}}, nil), 0.90)

	result, err := gate.Evaluate(context.Background(), nil, matrix)
	if err != nil {
		t.Fatal(err)
	}
	if result.Score > 1 {
		t.Errorf("score = %v, must stay within [0,1]", result.Score)
	}
	if result.Score != 1.0 {
		t.Errorf("score = %v, want clamped 1.0", result.Score)
	}
}

func TestGate_Evaluate_ZeroWeightSum(t *testing.T) {
	matrix := Matrix{
		Name:       "degenerate",
		Dimensions: map[string]Dimension{"a": {Weight: 0}},
	}
	gate := NewGate(fixedEvaluator(&Report{Scores: map[string]float64{"a": 1.0}}, nil), 0.9)

	result, err := gate.Evaluate(context.Background(), nil, matrix)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("score with zero weight sum = %v, want 0", result.Score)
	}
	if result.PassThreshold {
		t.Error("zero score must not pass")
	}
}

func TestGate_Evaluate_EvaluatorFailure(t *testing.T) {
	gate := NewGate(fixedEvaluator(nil, errors.New("model timeout")), 0.9)

	_, err := gate.Evaluate(context.Background(), nil, testMatrix())
	if !errors.Is(err, ErrEvaluationUnavailable) {
		t.Errorf("err = %v, want ErrEvaluationUnavailable", err)
	}
}

func TestGate_Evaluate_ThresholdBoundary(t *testing.T) {
	matrix := Matrix{
		Name:       "single",
		Dimensions: map[string]Dimension{"only": {Weight: 1.0}},
	}
	gate := NewGate(fixedEvaluator(&Report{Scores: map[string]float64{"only": 0.90}}, nil), 0.90)

	result, err := gate.Evaluate(context.Background(), nil, matrix)
	if err != nil {
		t.Fatal(err)
	}
	if !result.PassThreshold {
		t.Error("score equal to threshold must pass")
	}
}

func TestGate_DefaultThreshold(t *testing.T) {
	gate := NewGate(fixedEvaluator(nil, nil), 0)
	if gate.Threshold() != DefaultThreshold {
		t.Errorf("Threshold() = %v, want %v", gate.Threshold(), DefaultThreshold)
	}
}

func TestEvaluationResult_FlaggedDimensions(t *testing.T) {
	gate := NewGate(fixedEvaluator(&Report{
		Scores: map[string]float64{
			"task_clarity": 0.4,
			"output_spec":  1.0,
		},
	}, nil), 0.9)

	result, err := gate.Evaluate(context.Background(), nil, testMatrix())
	if err != nil {
		t.Fatal(err)
	}

	flagged := result.FlaggedDimensions()
	want := map[string]bool{"task_clarity": true, "evalability": true}
	if len(flagged) != len(want) {
		t.Fatalf("flagged = %v, want keys %v", flagged, want)
	}
	for _, d := range flagged {
		if !want[d] {
			t.Errorf("unexpected flagged dimension %q", d)
		}
	}
}

func TestParseMatrix(t *testing.T) {
	data := []byte(`
name: raw
dimensions:
  task_clarity:
    weight: 1.0
    description: Is the task clearly stated?
    feedback: Define goals explicitly.
  output_spec:
    weight: 1.3
`)
	m, err := ParseMatrix(data)
	if err != nil {
		t.Fatalf("ParseMatrix: %v", err)
	}
	if m.Name != "raw" {
		t.Errorf("name = %q, want raw", m.Name)
	}
	if got := m.Dimensions["output_spec"].Weight; got != 1.3 {
		t.Errorf("output_spec weight = %v, want 1.3", got)
	}
	if math.Abs(m.WeightSum()-2.3) > 1e-9 {
		t.Errorf("WeightSum = %v, want 2.3", m.WeightSum())
	}
}

func TestParseMatrix_NegativeWeight(t *testing.T) {
	_, err := ParseMatrix([]byte("name: bad\ndimensions:\n  a:\n    weight: -1\n"))
	if err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry("raw")
	r.Register(Matrix{Name: "raw"})
	r.Register(Matrix{Name: "template"})

	m, err := r.Lookup("template")
	if err != nil || m.Name != "template" {
		t.Errorf("Lookup(template) = %v, %v", m.Name, err)
	}

	m, err = r.Lookup("unknown_family")
	if err != nil || m.Name != "raw" {
		t.Errorf("Lookup(unknown) = %v, %v; want fallback raw", m.Name, err)
	}
}
