package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/promptlab/promptflow/artifact"
	"github.com/promptlab/promptflow/controller"
	pferrors "github.com/promptlab/promptflow/errors"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/notify"
)

// StepFunc runs one pipeline step. It receives the causal parent event ID
// via state.LastEventID and returns the updated state.
type StepFunc func(ctx flowgraph.Context, state State) (State, error)

// Step describes one pipeline step.
type Step struct {
	// Name identifies the step; unique within a pipeline.
	Name string

	// Type is the event type recorded for the step's outcome.
	Type eventlog.Type

	// Fn performs the step's work.
	Fn StepFunc

	// SelfLogging marks steps that append their own events (the quality
	// loop). The orchestrator then skips its per-step event and chains the
	// next step from the LastEventID the step left behind.
	SelfLogging bool
}

// Config assembles a Pipeline.
type Config struct {
	Steps []Step

	// Log is the event log all step events are appended to. Required.
	Log eventlog.Log

	// Notifier receives run/step notifications. Defaults to NopNotifier.
	Notifier notify.Notifier

	// AgentName and AgentVersion stamp the orchestrator's events.
	AgentName    string
	AgentVersion string
}

// Pipeline executes an ordered list of steps with fail-fast semantics.
type Pipeline struct {
	steps        []Step
	log          eventlog.Log
	notifier     notify.Notifier
	agentName    string
	agentVersion string
}

// New validates cfg and creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if len(cfg.Steps) == 0 {
		return nil, ErrNoSteps
	}
	seen := make(map[string]bool, len(cfg.Steps))
	for _, step := range cfg.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("step with empty name")
		}
		if step.Fn == nil {
			return nil, fmt.Errorf("step %q has no function", step.Name)
		}
		if seen[step.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStep, step.Name)
		}
		seen[step.Name] = true
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("pipeline requires an event log")
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	name := cfg.AgentName
	if name == "" {
		name = "pipeline-orchestrator"
	}
	version := cfg.AgentVersion
	if version == "" {
		version = "1.0.0"
	}
	return &Pipeline{
		steps:        cfg.Steps,
		log:          cfg.Log,
		notifier:     notifier,
		agentName:    name,
		agentVersion: version,
	}, nil
}

// Run executes the pipeline. Steps run strictly in order; the first failing
// step stops the run and no downstream step executes. The returned State
// carries the failing step's name and the tail of the causal event chain.
func (p *Pipeline) Run(ctx flowgraph.Context, state State) (State, error) {
	graph := flowgraph.NewGraph[State]()
	for _, step := range p.steps {
		graph = graph.AddNode(step.Name, p.node(step))
	}
	for i := 0; i < len(p.steps)-1; i++ {
		graph = graph.AddConditionalEdge(p.steps[i].Name, failFastRouter(p.steps[i+1].Name))
	}
	graph = graph.
		AddEdge(p.steps[len(p.steps)-1].Name, flowgraph.END).
		SetEntry(p.steps[0].Name)

	compiled, err := graph.Compile()
	if err != nil {
		return state, fmt.Errorf("compile pipeline: %w", err)
	}

	p.notifier.Notify(ctx, notify.Event{
		Type:       notify.EventRunStarted,
		RunID:      state.RunID,
		WorkflowID: state.WorkflowID,
		Message:    fmt.Sprintf("Run started with %d steps", len(p.steps)),
		Severity:   notify.SeverityInfo,
		Timestamp:  time.Now(),
	})

	result, err := compiled.Run(ctx, state)
	if err != nil {
		// A node only returns a hard error when an outcome could not be
		// durably recorded; the run result is unusable.
		return result, err
	}
	result.FinalizeDuration()

	if result.HasError() {
		p.notifier.Notify(ctx, notify.Event{
			Type:       notify.EventRunFailed,
			RunID:      result.RunID,
			WorkflowID: result.WorkflowID,
			StepID:     result.FailedStep,
			Message:    result.Summary(),
			Severity:   notify.SeverityError,
			Timestamp:  time.Now(),
		})
		return result, fmt.Errorf("%w: %s: %s", ErrStepFailed, result.FailedStep, result.Error)
	}

	p.notifier.Notify(ctx, notify.Event{
		Type:       notify.EventRunCompleted,
		RunID:      result.RunID,
		WorkflowID: result.WorkflowID,
		Message:    result.Summary(),
		Severity:   notify.SeverityInfo,
		Timestamp:  time.Now(),
	})
	return result, nil
}

// node wraps a step with event emission and failure capture. Step failures
// are carried in state so the graph router can stop the run; only a log
// append failure surfaces as a node error. Errors in the fault taxonomy are
// classified into the error event's payload.
func (p *Pipeline) node(step Step) flowgraph.NodeFunc[State] {
	return func(ctx flowgraph.Context, state State) (State, error) {
		start := time.Now()
		next, err := step.Fn(ctx, state)
		slog.Debug("step executed",
			"runId", state.RunID,
			"step", step.Name,
			"duration", time.Since(start),
			"failed", err != nil)

		if err != nil {
			fault := pferrors.Classify(err)
			if !step.SelfLogging {
				payload := map[string]any{"error": err.Error()}
				if fault != "" {
					payload["fault"] = fault
				}
				evID, logErr := p.appendStepEvent(next, step, eventlog.StatusError, payload)
				if logErr != nil {
					return next, logErr
				}
				next.LastEventID = evID
			}
			next.SetError(step.Name, err)
			// Faults mean the machinery broke, not that quality fell
			// short; they page louder.
			severity := notify.SeverityError
			if fault != "" {
				severity = notify.SeverityCritical
			}
			p.notifier.Notify(ctx, notify.Event{
				Type:       notify.EventStepFailed,
				RunID:      next.RunID,
				WorkflowID: next.WorkflowID,
				StepID:     step.Name,
				Message:    err.Error(),
				Severity:   severity,
				Timestamp:  time.Now(),
			})
			return next, nil
		}

		if !step.SelfLogging {
			payload := map[string]any{"identifier": next.Identifier}
			if out, ok := next.Outputs[step.Name]; ok {
				payload["output"] = out
			}
			evID, logErr := p.appendStepEvent(next, step, eventlog.StatusSuccess, payload)
			if logErr != nil {
				return next, logErr
			}
			next.LastEventID = evID
		}
		return next, nil
	}
}

// failFastRouter advances to the next step unless the current one failed.
func failFastRouter(nextStep string) func(ctx flowgraph.Context, state State) string {
	return func(ctx flowgraph.Context, state State) string {
		if state.HasError() {
			return flowgraph.END
		}
		return nextStep
	}
}

func (p *Pipeline) appendStepEvent(state State, step Step, status eventlog.Status, payload map[string]any) (string, error) {
	ev := eventlog.New(state.WorkflowID, step.Type, status)
	if status == eventlog.StatusError {
		ev.EventType = eventlog.TypeError
	}
	ev.AgentName = p.agentName
	ev.AgentVersion = p.agentVersion
	ev.StepID = step.Name
	ev.SourceEventID = state.LastEventID
	ev.Payload = payload
	ev.Meta = map[string]any{"run_id": state.RunID}
	if ref, err := artifact.Parse(state.Identifier); err == nil {
		ev.PromptVersion = ref.Version.String()
	}

	if err := p.log.Append(ev); err != nil {
		return "", err
	}
	return ev.EventID, nil
}

// QualityStep builds a step that delegates to the retry/promotion
// controller. The controller appends its own event sub-chain; the step
// fails when the lineage aborts instead of promoting.
func QualityStep(name string, ctrl *controller.Controller) Step {
	return Step{
		Name:        name,
		Type:        eventlog.TypeScoring,
		SelfLogging: true,
		Fn: func(ctx flowgraph.Context, state State) (State, error) {
			outcome, err := ctrl.RunIdentifier(ctx, state.WorkflowID, state.Identifier, state.LastEventID)
			if outcome != nil {
				if outcome.LastEventID != "" {
					state.LastEventID = outcome.LastEventID
				}
				if outcome.Final.Stage.Valid() {
					state.Identifier = outcome.Final.Format()
				}
				state.SetOutput(name, map[string]any{
					"state":   string(outcome.State),
					"retries": outcome.Retry.RetryCount,
				})
			}
			if err != nil {
				// Availability failures get operator guidance attached;
				// other errors pass through unchanged.
				return state, pferrors.WrapEvaluationError(err)
			}
			if !outcome.Promoted() {
				return state, fmt.Errorf("lineage aborted after %d retries", outcome.Retry.RetryCount)
			}
			return state, nil
		},
	}
}
