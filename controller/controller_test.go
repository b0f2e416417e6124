package controller

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/promptlab/promptflow/align"
	"github.com/promptlab/promptflow/artifact"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/scoring"
	"github.com/promptlab/promptflow/store"
)

func testMatrices() *scoring.Registry {
	r := scoring.NewRegistry("raw")
	r.Register(scoring.Matrix{
		Name: "raw",
		Dimensions: map[string]scoring.Dimension{
			"clarity":  {Weight: 2, Feedback: "tighten the wording"},
			"coverage": {Weight: 1, Feedback: "cover the missing cases"},
		},
	})
	return r
}

// passAfter returns an evaluator that fails n times and then passes.
func passAfter(n int) scoring.Evaluator {
	calls := 0
	return scoring.EvaluatorFunc(func(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
		calls++
		score := 0.5
		if calls > n {
			score = 1.0
		}
		return &scoring.Report{
			Scores: map[string]float64{"clarity": score, "coverage": score},
		}, nil
	})
}

// echoImprover claims to address every flagged dimension.
func echoImprover() Improver {
	return ImproverFunc(func(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*ImproveResult, error) {
		return &ImproveResult{
			Content:   append([]byte("improved: "), content...),
			Addressed: result.FlaggedDimensions(),
		}, nil
	})
}

type fixture struct {
	st      *store.MemStore
	manager *artifact.Manager
	checker *align.Checker
	log     *eventlog.FileLog
	ref     artifact.Ref
}

func newFixture(t *testing.T, evaluator scoring.Evaluator, improver Improver, maxRetries int) (*Controller, *fixture) {
	t.Helper()

	st := store.NewMemStore()
	manager := artifact.NewManager(artifact.ManagerConfig{Store: st})
	checker := align.NewChecker(st, "reports")
	log, err := eventlog.NewFileLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}

	art := artifact.New("summarizer", artifact.MustParseVersion("1.0.0"), []byte("summarize: briefly"))
	if err := manager.Save(art); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c := New(Config{
		Gate:         scoring.NewGate(evaluator, 0.90),
		Improver:     improver,
		Manager:      manager,
		Checker:      checker,
		Log:          log,
		Matrices:     testMatrices(),
		MaxRetries:   maxRetries,
		WriteReports: true,
		AgentName:    "test-controller",
		AgentVersion: "0.1.0",
	})
	return c, &fixture{st: st, manager: manager, checker: checker, log: log, ref: art.Ref}
}

func collectEvents(t *testing.T, log *eventlog.FileLog, workflowID string) []eventlog.Event {
	t.Helper()
	replay, err := log.Replay(workflowID)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	events, err := eventlog.Collect(replay)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return events
}

func countByType(events []eventlog.Event) map[eventlog.Type]int {
	counts := make(map[eventlog.Type]int)
	for _, ev := range events {
		counts[ev.EventType]++
	}
	return counts
}

func TestController_FirstAttemptPromotes(t *testing.T) {
	c, fx := newFixture(t, passAfter(0), echoImprover(), 3)

	outcome, err := c.Run(context.Background(), "wf-1", fx.ref, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Promoted() {
		t.Fatalf("outcome.State = %v, want %v", outcome.State, StatePromoting)
	}
	if outcome.Retry.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", outcome.Retry.RetryCount)
	}

	// raw -> templ is a patch bump.
	want := artifact.Ref{Base: "summarizer", Stage: artifact.StageTempl, Version: artifact.MustParseVersion("1.0.1"), Ext: ".yaml"}
	if outcome.Final != want {
		t.Errorf("Final = %v, want %v", outcome.Final, want)
	}

	// Promotion relocates: the raw key must be gone and the templ key present.
	if _, err := fx.manager.Load(fx.ref); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load(old ref) error = %v, want ErrNotFound", err)
	}
	if _, err := fx.manager.Load(want); err != nil {
		t.Errorf("Load(promoted ref): %v", err)
	}

	events := collectEvents(t, fx.log, "wf-1")
	counts := countByType(events)
	if counts[eventlog.TypeScoring] != 1 || counts[eventlog.TypePromotion] != 1 {
		t.Errorf("event counts = %v, want 1 scoring and 1 promotion", counts)
	}
	if counts[eventlog.TypeImprovement] != 0 {
		t.Errorf("improvement events = %d, want 0", counts[eventlog.TypeImprovement])
	}
}

func TestController_RetryBudgetExhausted(t *testing.T) {
	c, fx := newFixture(t, passAfter(100), echoImprover(), 3)

	outcome, err := c.Run(context.Background(), "wf-2", fx.ref, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.State != StateAborted {
		t.Fatalf("outcome.State = %v, want %v", outcome.State, StateAborted)
	}
	if outcome.Retry.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", outcome.Retry.RetryCount)
	}

	// Three improvements means three patch bumps from 1.0.0.
	if got := outcome.Final.Version.String(); got != "1.0.3" {
		t.Errorf("Final version = %s, want 1.0.3", got)
	}
	if outcome.Final.Stage != artifact.StageRaw {
		t.Errorf("Final stage = %v, want raw", outcome.Final.Stage)
	}

	events := collectEvents(t, fx.log, "wf-2")
	counts := countByType(events)
	want := map[eventlog.Type]int{
		eventlog.TypeScoring:        4,
		eventlog.TypeImprovement:    3,
		eventlog.TypeAlignmentCheck: 3,
		eventlog.TypeError:          1,
	}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("%s events = %d, want %d", typ, counts[typ], n)
		}
	}
	if len(events) != 11 {
		t.Errorf("total events = %d, want 11", len(events))
	}

	// The abort event is last and carries error status.
	last := events[len(events)-1]
	if last.EventType != eventlog.TypeError || last.Status != eventlog.StatusError {
		t.Errorf("last event = %s/%s, want error/error", last.EventType, last.Status)
	}
}

func TestController_EventualPassConsumesRetries(t *testing.T) {
	c, fx := newFixture(t, passAfter(2), echoImprover(), 3)

	outcome, err := c.Run(context.Background(), "wf-3", fx.ref, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Promoted() {
		t.Fatalf("outcome.State = %v, want %v", outcome.State, StatePromoting)
	}
	if outcome.Retry.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", outcome.Retry.RetryCount)
	}
	// Two patch bumps while raw, then a patch bump into templ.
	if got := outcome.Final.Version.String(); got != "1.0.3" {
		t.Errorf("Final version = %s, want 1.0.3", got)
	}
}

func TestController_CausalChain(t *testing.T) {
	c, fx := newFixture(t, passAfter(1), echoImprover(), 3)

	outcome, err := c.Run(context.Background(), "wf-4", fx.ref, "root-event")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Promoted() {
		t.Fatalf("outcome.State = %v", outcome.State)
	}

	events := collectEvents(t, fx.log, "wf-4")
	if len(events) == 0 {
		t.Fatal("no events")
	}
	if events[0].SourceEventID != "root-event" {
		t.Errorf("first event source = %q, want root-event", events[0].SourceEventID)
	}
	for i := 1; i < len(events); i++ {
		if events[i].SourceEventID != events[i-1].EventID {
			t.Errorf("event %d source = %q, want %q", i, events[i].SourceEventID, events[i-1].EventID)
		}
	}
	if outcome.LastEventID != events[len(events)-1].EventID {
		t.Errorf("LastEventID = %q, want tail %q", outcome.LastEventID, events[len(events)-1].EventID)
	}
}

func TestController_UnalignedImprovementConsumesBudgetAndIsKept(t *testing.T) {
	// The improver never addresses what quality flagged, so alignment fails
	// every round. Budget still drains and improved versions stay on disk.
	offTopic := ImproverFunc(func(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*ImproveResult, error) {
		return &ImproveResult{Content: []byte("rewritten"), Addressed: []string{"tone"}}, nil
	})
	c, fx := newFixture(t, passAfter(100), offTopic, 2)

	outcome, err := c.Run(context.Background(), "wf-5", fx.ref, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.State != StateAborted {
		t.Fatalf("outcome.State = %v, want aborted", outcome.State)
	}
	if outcome.Retry.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", outcome.Retry.RetryCount)
	}
	if outcome.Retry.LastAlignment {
		t.Error("LastAlignment = true, want false")
	}

	// Both improved versions remain loadable.
	for _, v := range []string{"1.0.1", "1.0.2"} {
		ref := fx.ref
		ref.Version = artifact.MustParseVersion(v)
		if _, err := fx.manager.Load(ref); err != nil {
			t.Errorf("Load(v%s): %v", v, err)
		}
	}

	events := collectEvents(t, fx.log, "wf-5")
	for _, ev := range events {
		if ev.EventType != eventlog.TypeAlignmentCheck {
			continue
		}
		if aligned, ok := ev.Payload["aligned"].(bool); !ok || aligned {
			t.Errorf("alignment event payload aligned = %v, want false", ev.Payload["aligned"])
		}
	}
}

func TestController_EvaluatorUnavailableAborts(t *testing.T) {
	down := scoring.EvaluatorFunc(func(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
		return nil, errors.New("model endpoint unreachable")
	})
	c, fx := newFixture(t, down, echoImprover(), 3)

	outcome, err := c.Run(context.Background(), "wf-6", fx.ref, "")
	if !errors.Is(err, scoring.ErrEvaluationUnavailable) {
		t.Fatalf("Run error = %v, want ErrEvaluationUnavailable", err)
	}
	if outcome.State != StateAborted {
		t.Errorf("outcome.State = %v, want aborted", outcome.State)
	}
	if outcome.Retry.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0 (no budget spent on faults)", outcome.Retry.RetryCount)
	}

	events := collectEvents(t, fx.log, "wf-6")
	if len(events) != 1 || events[0].EventType != eventlog.TypeError {
		t.Fatalf("events = %d, want exactly one error event", len(events))
	}
	if msg, _ := events[0].Payload["error"].(string); !strings.Contains(msg, "unreachable") {
		t.Errorf("error payload = %q, want the evaluator failure", msg)
	}
}

func TestController_MissingArtifactAborts(t *testing.T) {
	c, fx := newFixture(t, passAfter(0), echoImprover(), 3)

	missing := fx.ref
	missing.Base = "never_saved"
	outcome, err := c.Run(context.Background(), "wf-7", missing, "")
	if err == nil {
		t.Fatal("Run succeeded for a missing artifact")
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Run error = %v, want ErrNotFound", err)
	}
	if outcome.State != StateAborted {
		t.Errorf("outcome.State = %v, want aborted", outcome.State)
	}
}

func TestController_MissingReportAborts(t *testing.T) {
	// With WriteReports off, nothing produces the quality/feedback reports,
	// so the alignment check must surface the missing artifact as a fault.
	st := store.NewMemStore()
	manager := artifact.NewManager(artifact.ManagerConfig{Store: st})
	log, err := eventlog.NewFileLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}
	art := artifact.New("summarizer", artifact.MustParseVersion("1.0.0"), []byte("draft"))
	if err := manager.Save(art); err != nil {
		t.Fatalf("Save: %v", err)
	}
	c := New(Config{
		Gate:         scoring.NewGate(passAfter(100), 0.90),
		Improver:     echoImprover(),
		Manager:      manager,
		Checker:      align.NewChecker(st, "reports"),
		Log:          log,
		Matrices:     testMatrices(),
		WriteReports: false,
	})

	outcome, err := c.Run(context.Background(), "wf-8", art.Ref, "")
	if !errors.Is(err, align.ErrMissingArtifact) {
		t.Fatalf("Run error = %v, want ErrMissingArtifact", err)
	}
	if outcome.State != StateAborted {
		t.Errorf("outcome.State = %v, want aborted", outcome.State)
	}
}

func TestController_RunIdentifier(t *testing.T) {
	c, fx := newFixture(t, passAfter(0), echoImprover(), 3)

	outcome, err := c.RunIdentifier(context.Background(), "wf-9", fx.ref.Format(), "")
	if err != nil {
		t.Fatalf("RunIdentifier: %v", err)
	}
	if !outcome.Promoted() {
		t.Errorf("outcome.State = %v, want promoting", outcome.State)
	}
}

func TestController_RunIdentifier_Malformed(t *testing.T) {
	c, fx := newFixture(t, passAfter(0), echoImprover(), 3)

	outcome, err := c.RunIdentifier(context.Background(), "wf-10", "not an identifier", "")
	if !errors.Is(err, artifact.ErrMalformedIdentifier) {
		t.Fatalf("RunIdentifier error = %v, want ErrMalformedIdentifier", err)
	}
	if outcome.State != StateAborted {
		t.Errorf("outcome.State = %v, want aborted", outcome.State)
	}

	events := collectEvents(t, fx.log, "wf-10")
	if len(events) != 1 || events[0].Status != eventlog.StatusError {
		t.Fatalf("events = %v, want exactly one error event", len(events))
	}
}

func TestRetryState(t *testing.T) {
	r := RetryState{MaxRetries: 2}
	if r.Exhausted() {
		t.Error("fresh state reports exhausted")
	}
	r.consume(false)
	r.consume(true)
	if !r.Exhausted() {
		t.Error("state not exhausted after MaxRetries attempts")
	}
	if !r.LastAlignment {
		t.Error("LastAlignment not recorded")
	}
}
