package integrationtest

import (
	"context"
	"testing"

	"github.com/promptlab/promptflow/agent"
	"github.com/promptlab/promptflow/align"
	"github.com/promptlab/promptflow/artifact"
	flowcontext "github.com/promptlab/promptflow/context"
	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/scoring"
	"github.com/promptlab/promptflow/store"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	llm "github.com/randalmurphal/llmkit/claude"
)

// testServices holds an in-memory service set for lifecycle tests.
type testServices struct {
	Store    *store.MemStore
	Manager  *artifact.Manager
	Checker  *align.Checker
	Log      *eventlog.FileLog
	Matrices *scoring.Registry
}

// setupServices creates in-memory services with a matrix registered for
// both the raw stage and the given base name.
func setupServices(t *testing.T, base string) *testServices {
	t.Helper()

	st := store.NewMemStore()
	log, err := eventlog.NewFileLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}

	matrices := scoring.NewRegistry("default")
	dims := map[string]scoring.Dimension{
		"clarity":  {Weight: 2.0, Feedback: "Rewrite vague instructions as concrete rules"},
		"coverage": {Weight: 1.0, Feedback: "Add the missing behaviors"},
	}
	matrices.Register(scoring.Matrix{Name: "raw", Dimensions: dims})
	matrices.Register(scoring.Matrix{Name: base, Dimensions: dims})

	return &testServices{
		Store:    st,
		Manager:  artifact.NewManager(artifact.ManagerConfig{Store: st}),
		Checker:  align.NewChecker(st, "reports"),
		Log:      log,
		Matrices: matrices,
	}
}

// newController builds a retry controller over the test services using the
// LLM strategy with the given mock client.
func newController(t *testing.T, ts *testServices, client llm.Client, maxRetries int) *controller.Controller {
	t.Helper()

	evaluator, improver, err := agent.New(agent.Config{
		Strategy: agent.StrategyLLM,
		Client:   client,
	})
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}

	return controller.New(controller.Config{
		Gate:         scoring.NewGate(evaluator, 0.90),
		Improver:     improver,
		Manager:      ts.Manager,
		Checker:      ts.Checker,
		Log:          ts.Log,
		Matrices:     ts.Matrices,
		MaxRetries:   maxRetries,
		WriteReports: true,
	})
}

// setupContext creates a flowgraph.Context with all services injected.
func setupContext(ts *testServices, client llm.Client) flowgraph.Context {
	services := &flowcontext.Services{
		Store:     ts.Store,
		Artifacts: ts.Manager,
		Log:       ts.Log,
		Checker:   ts.Checker,
		Matrices:  ts.Matrices,
		LLM:       client,
	}
	return flowgraph.NewContext(services.InjectAll(context.Background()))
}

// mockResponses creates a MockClient with sequential responses.
func mockResponses(responses ...string) *llm.MockClient {
	return llm.NewMockClient("").WithResponses(responses...)
}

// collectEvents replays the full event stream for a workflow.
func collectEvents(t *testing.T, log eventlog.Log, workflowID string) []eventlog.Event {
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
