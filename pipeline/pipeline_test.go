package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/promptlab/promptflow/align"
	"github.com/promptlab/promptflow/artifact"
	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/notify"
	"github.com/promptlab/promptflow/scoring"
	"github.com/promptlab/promptflow/store"
)

func newLog(t *testing.T) *eventlog.FileLog {
	t.Helper()
	log, err := eventlog.NewFileLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}
	return log
}

func replayAll(t *testing.T, log *eventlog.FileLog, workflowID string) []eventlog.Event {
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

func noopStep(name string, typ eventlog.Type) Step {
	return Step{
		Name: name,
		Type: typ,
		Fn: func(ctx flowgraph.Context, state State) (State, error) {
			state.SetOutput(name, "done")
			return state, nil
		},
	}
}

func TestPipeline_AllStepsSucceed(t *testing.T) {
	log := newLog(t)
	p, err := New(Config{
		Log: log,
		Steps: []Step{
			noopStep("extract", eventlog.TypeExtraction),
			noopStep("classify", eventlog.TypeClassification),
			noopStep("sync", eventlog.TypeSync),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := p.Run(ctx, NewState("wf-ok"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.HasError() {
		t.Fatalf("result.Error = %q", result.Error)
	}

	events := replayAll(t, log, "wf-ok")
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	wantTypes := []eventlog.Type{eventlog.TypeExtraction, eventlog.TypeClassification, eventlog.TypeSync}
	for i, ev := range events {
		if ev.EventType != wantTypes[i] {
			t.Errorf("event %d type = %s, want %s", i, ev.EventType, wantTypes[i])
		}
		if ev.Status != eventlog.StatusSuccess {
			t.Errorf("event %d status = %s", i, ev.Status)
		}
	}
	if result.LastEventID != events[2].EventID {
		t.Errorf("LastEventID = %q, want %q", result.LastEventID, events[2].EventID)
	}
}

func TestPipeline_FailFast(t *testing.T) {
	log := newLog(t)
	var executed []string
	track := func(name string, fail bool) Step {
		return Step{
			Name: name,
			Type: eventlog.TypeExtraction,
			Fn: func(ctx flowgraph.Context, state State) (State, error) {
				executed = append(executed, name)
				if fail {
					return state, errors.New("collaborator unavailable")
				}
				return state, nil
			},
		}
	}

	p, err := New(Config{
		Log: log,
		Steps: []Step{
			track("one", false),
			track("two", true),
			track("three", false),
			track("four", false),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := p.Run(ctx, NewState("wf-fail"))
	if !errors.Is(err, ErrStepFailed) {
		t.Fatalf("Run error = %v, want ErrStepFailed", err)
	}
	if result.FailedStep != "two" {
		t.Errorf("FailedStep = %q, want two", result.FailedStep)
	}
	if len(executed) != 2 {
		t.Errorf("executed steps = %v, want [one two]", executed)
	}

	events := replayAll(t, log, "wf-fail")
	if len(events) != 2 {
		t.Fatalf("events = %d, want exactly 2", len(events))
	}
	if events[0].Status != eventlog.StatusSuccess {
		t.Errorf("first event status = %s, want success", events[0].Status)
	}
	if events[1].Status != eventlog.StatusError || events[1].EventType != eventlog.TypeError {
		t.Errorf("second event = %s/%s, want error/error", events[1].EventType, events[1].Status)
	}
	if events[1].SourceEventID != events[0].EventID {
		t.Errorf("failing event source = %q, want %q", events[1].SourceEventID, events[0].EventID)
	}
}

func TestPipeline_CausalChain(t *testing.T) {
	log := newLog(t)
	p, err := New(Config{
		Log: log,
		Steps: []Step{
			noopStep("a", eventlog.TypeExtraction),
			noopStep("b", eventlog.TypeMatching),
			noopStep("c", eventlog.TypeSync),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	if _, err := p.Run(ctx, NewState("wf-chain")); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := replayAll(t, log, "wf-chain")
	if events[0].SourceEventID != "" {
		t.Errorf("first event source = %q, want empty", events[0].SourceEventID)
	}
	for i := 1; i < len(events); i++ {
		if events[i].SourceEventID != events[i-1].EventID {
			t.Errorf("event %d source = %q, want %q", i, events[i].SourceEventID, events[i-1].EventID)
		}
	}
}

func TestPipeline_QualityStepPromotes(t *testing.T) {
	st := store.NewMemStore()
	manager := artifact.NewManager(artifact.ManagerConfig{Store: st})
	log := newLog(t)

	matrices := scoring.NewRegistry("raw")
	matrices.Register(scoring.Matrix{
		Name:       "raw",
		Dimensions: map[string]scoring.Dimension{"clarity": {Weight: 1}},
	})
	pass := scoring.EvaluatorFunc(func(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
		return &scoring.Report{Scores: map[string]float64{"clarity": 1.0}}, nil
	})
	ctrl := controller.New(controller.Config{
		Gate: scoring.NewGate(pass, 0.90),
		Improver: controller.ImproverFunc(func(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*controller.ImproveResult, error) {
			return &controller.ImproveResult{Content: content}, nil
		}),
		Manager:      manager,
		Checker:      align.NewChecker(st, "reports"),
		Log:          log,
		Matrices:     matrices,
		WriteReports: true,
	})

	extract := Step{
		Name: "extract",
		Type: eventlog.TypeExtraction,
		Fn: func(ctx flowgraph.Context, state State) (State, error) {
			art := artifact.New("extractor", artifact.MustParseVersion("1.0.0"), []byte("extract: contact fields"))
			if err := manager.Save(art); err != nil {
				return state, err
			}
			state.Identifier = art.Ref.Format()
			return state, nil
		},
	}

	p, err := New(Config{
		Log: log,
		Steps: []Step{
			extract,
			QualityStep("quality", ctrl),
			noopStep("classify", eventlog.TypeClassification),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := p.Run(ctx, NewState("wf-quality"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The controller promoted raw -> templ with a patch bump.
	if !strings.Contains(result.Identifier, "_templ_v1.0.1") {
		t.Errorf("Identifier = %q, want a templ v1.0.1 identifier", result.Identifier)
	}

	// Chain: extraction -> scoring -> promotion -> classification, each
	// chained to its predecessor.
	events := replayAll(t, log, "wf-quality")
	wantTypes := []eventlog.Type{
		eventlog.TypeExtraction,
		eventlog.TypeScoring,
		eventlog.TypePromotion,
		eventlog.TypeClassification,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("events = %d, want %d", len(events), len(wantTypes))
	}
	for i, ev := range events {
		if ev.EventType != wantTypes[i] {
			t.Errorf("event %d type = %s, want %s", i, ev.EventType, wantTypes[i])
		}
		if i > 0 && ev.SourceEventID != events[i-1].EventID {
			t.Errorf("event %d source = %q, want %q", i, ev.SourceEventID, events[i-1].EventID)
		}
	}
}

func TestPipeline_QualityStepAbortFailsRun(t *testing.T) {
	st := store.NewMemStore()
	manager := artifact.NewManager(artifact.ManagerConfig{Store: st})
	log := newLog(t)

	matrices := scoring.NewRegistry("raw")
	matrices.Register(scoring.Matrix{
		Name:       "raw",
		Dimensions: map[string]scoring.Dimension{"clarity": {Weight: 1}},
	})
	fail := scoring.EvaluatorFunc(func(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
		return &scoring.Report{Scores: map[string]float64{"clarity": 0.2}}, nil
	})
	ctrl := controller.New(controller.Config{
		Gate: scoring.NewGate(fail, 0.90),
		Improver: controller.ImproverFunc(func(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*controller.ImproveResult, error) {
			return &controller.ImproveResult{Content: content, Addressed: result.FlaggedDimensions()}, nil
		}),
		Manager:      manager,
		Checker:      align.NewChecker(st, "reports"),
		Log:          log,
		Matrices:     matrices,
		MaxRetries:   1,
		WriteReports: true,
	})

	art := artifact.New("extractor", artifact.MustParseVersion("1.0.0"), []byte("draft"))
	if err := manager.Save(art); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var classified bool
	p, err := New(Config{
		Log: log,
		Steps: []Step{
			QualityStep("quality", ctrl),
			{
				Name: "classify",
				Type: eventlog.TypeClassification,
				Fn: func(ctx flowgraph.Context, state State) (State, error) {
					classified = true
					return state, nil
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := p.Run(ctx, NewState("wf-abort").WithIdentifier(art.Ref.Format()))
	if !errors.Is(err, ErrStepFailed) {
		t.Fatalf("Run error = %v, want ErrStepFailed", err)
	}
	if result.FailedStep != "quality" {
		t.Errorf("FailedStep = %q, want quality", result.FailedStep)
	}
	if classified {
		t.Error("classify executed after quality step aborted")
	}
}

func TestPipeline_FaultClassifiedInErrorEvent(t *testing.T) {
	log := newLog(t)
	var got []notify.Event
	recorder := notifierFunc(func(ctx context.Context, event notify.Event) error {
		got = append(got, event)
		return nil
	})

	p, err := New(Config{
		Log:      log,
		Notifier: recorder,
		Steps: []Step{
			{
				Name: "load",
				Type: eventlog.TypeExtraction,
				Fn: func(ctx flowgraph.Context, state State) (State, error) {
					return state, fmt.Errorf("load seed artifact: %w", store.ErrNotFound)
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	if _, err := p.Run(ctx, NewState("wf-fault")); !errors.Is(err, ErrStepFailed) {
		t.Fatalf("Run error = %v, want ErrStepFailed", err)
	}

	events := replayAll(t, log, "wf-fault")
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if got := events[0].Payload["fault"]; got != "missing_artifact" {
		t.Errorf("error event fault = %v, want missing_artifact", got)
	}

	// A broken collaborator pages at critical, not error.
	var failed *notify.Event
	for i := range got {
		if got[i].Type == notify.EventStepFailed {
			failed = &got[i]
		}
	}
	if failed == nil {
		t.Fatal("no step-failed notification recorded")
	}
	if failed.Severity != notify.SeverityCritical {
		t.Errorf("step-failed severity = %q, want %q", failed.Severity, notify.SeverityCritical)
	}
}

func TestPipeline_NonFaultErrorStaysUnclassified(t *testing.T) {
	log := newLog(t)
	var got []notify.Event
	recorder := notifierFunc(func(ctx context.Context, event notify.Event) error {
		got = append(got, event)
		return nil
	})

	p, err := New(Config{
		Log:      log,
		Notifier: recorder,
		Steps: []Step{
			{
				Name: "classify",
				Type: eventlog.TypeClassification,
				Fn: func(ctx flowgraph.Context, state State) (State, error) {
					return state, errors.New("taxonomy rejected the label")
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	if _, err := p.Run(ctx, NewState("wf-plain")); !errors.Is(err, ErrStepFailed) {
		t.Fatalf("Run error = %v, want ErrStepFailed", err)
	}

	events := replayAll(t, log, "wf-plain")
	if _, classified := events[0].Payload["fault"]; classified {
		t.Errorf("plain error classified as fault: %v", events[0].Payload)
	}
	for _, ev := range got {
		if ev.Type == notify.EventStepFailed && ev.Severity != notify.SeverityError {
			t.Errorf("step-failed severity = %q, want %q", ev.Severity, notify.SeverityError)
		}
	}
}

func TestPipeline_QualityStepEvaluatorDownGuidance(t *testing.T) {
	st := store.NewMemStore()
	manager := artifact.NewManager(artifact.ManagerConfig{Store: st})
	log := newLog(t)

	matrices := scoring.NewRegistry("raw")
	matrices.Register(scoring.Matrix{
		Name:       "raw",
		Dimensions: map[string]scoring.Dimension{"clarity": {Weight: 1}},
	})
	down := scoring.EvaluatorFunc(func(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
		return nil, errors.New("connection refused")
	})
	ctrl := controller.New(controller.Config{
		Gate: scoring.NewGate(down, 0.90),
		Improver: controller.ImproverFunc(func(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*controller.ImproveResult, error) {
			return &controller.ImproveResult{Content: content}, nil
		}),
		Manager:  manager,
		Checker:  align.NewChecker(st, "reports"),
		Log:      log,
		Matrices: matrices,
	})

	art := artifact.New("extractor", artifact.MustParseVersion("1.0.0"), []byte("draft"))
	if err := manager.Save(art); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := New(Config{
		Log:   log,
		Steps: []Step{QualityStep("quality", ctrl)},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := p.Run(ctx, NewState("wf-down").WithIdentifier(art.Ref.Format()))
	if !errors.Is(err, ErrStepFailed) {
		t.Fatalf("Run error = %v, want ErrStepFailed", err)
	}
	// The captured failure carries the operator guidance attached to
	// availability faults.
	if !strings.Contains(result.Error, "evaluator could not be reached") {
		t.Errorf("result.Error = %q, want evaluator guidance", result.Error)
	}
	if !strings.Contains(result.Error, "without consuming retry budget") {
		t.Errorf("result.Error = %q, want retry-budget note", result.Error)
	}
}

func TestPipeline_Notifications(t *testing.T) {
	log := newLog(t)
	var got []notify.Event
	recorder := notifierFunc(func(ctx context.Context, event notify.Event) error {
		got = append(got, event)
		return nil
	})

	p, err := New(Config{
		Log:      log,
		Notifier: recorder,
		Steps: []Step{
			noopStep("one", eventlog.TypeExtraction),
			{
				Name: "two",
				Type: eventlog.TypeSync,
				Fn: func(ctx flowgraph.Context, state State) (State, error) {
					return state, errors.New("sync endpoint down")
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := flowgraph.NewContext(context.Background())
	if _, err := p.Run(ctx, NewState("wf-notify")); !errors.Is(err, ErrStepFailed) {
		t.Fatalf("Run error = %v, want ErrStepFailed", err)
	}

	wantTypes := []notify.EventType{notify.EventRunStarted, notify.EventStepFailed, notify.EventRunFailed}
	if len(got) != len(wantTypes) {
		t.Fatalf("notifications = %d, want %d", len(got), len(wantTypes))
	}
	for i, ev := range got {
		if ev.Type != wantTypes[i] {
			t.Errorf("notification %d = %s, want %s", i, ev.Type, wantTypes[i])
		}
	}
	if got[1].StepID != "two" {
		t.Errorf("step failed notification StepID = %q, want two", got[1].StepID)
	}
}

func TestPipeline_ConfigValidation(t *testing.T) {
	log := newLog(t)

	if _, err := New(Config{Log: log}); !errors.Is(err, ErrNoSteps) {
		t.Errorf("New with no steps = %v, want ErrNoSteps", err)
	}

	_, err := New(Config{
		Log: log,
		Steps: []Step{
			noopStep("dup", eventlog.TypeExtraction),
			noopStep("dup", eventlog.TypeSync),
		},
	})
	if !errors.Is(err, ErrDuplicateStep) {
		t.Errorf("New with duplicate steps = %v, want ErrDuplicateStep", err)
	}

	if _, err := New(Config{Steps: []Step{noopStep("one", eventlog.TypeExtraction)}}); err == nil {
		t.Error("New without log should fail")
	}
}

func TestState_RunID(t *testing.T) {
	a := NewState("wf-x")
	b := NewState("wf-x")
	if a.RunID == b.RunID {
		t.Errorf("RunID not unique: %q", a.RunID)
	}
	if !strings.Contains(a.RunID, "wf-x") {
		t.Errorf("RunID = %q, want it to embed the workflow ID", a.RunID)
	}
}

type notifierFunc func(ctx context.Context, event notify.Event) error

func (f notifierFunc) Notify(ctx context.Context, event notify.Event) error {
	return f(ctx, event)
}
