package pipeline

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// State is the value threaded through a pipeline run. Steps receive it,
// update it, and return it; the orchestrator owns the event bookkeeping.
type State struct {
	// Identification
	RunID      string `json:"runId"`
	WorkflowID string `json:"workflowId"`

	// Identifier is the current artifact identifier the run is working on.
	// Steps that create or promote artifacts update it.
	Identifier string `json:"identifier,omitempty"`

	// LastEventID is the tail of the run's causal event chain.
	LastEventID string `json:"lastEventId,omitempty"`

	// Outputs collects per-step results keyed by step name.
	Outputs map[string]any `json:"outputs,omitempty"`

	// Metrics
	StartTime     time.Time     `json:"startTime"`
	TotalDuration time.Duration `json:"totalDuration"`

	// Error tracking
	FailedStep string `json:"failedStep,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewState creates a fresh run state for a workflow.
func NewState(workflowID string) State {
	return State{
		RunID:      generateRunID(workflowID),
		WorkflowID: workflowID,
		Outputs:    make(map[string]any),
		StartTime:  time.Now(),
	}
}

// WithIdentifier sets the starting artifact identifier.
func (s State) WithIdentifier(identifier string) State {
	s.Identifier = identifier
	return s
}

// WithRunID sets a custom run ID.
func (s State) WithRunID(runID string) State {
	s.RunID = runID
	return s
}

// SetOutput records a step's result. Safe on a zero-value state.
func (s *State) SetOutput(step string, value any) {
	if s.Outputs == nil {
		s.Outputs = make(map[string]any)
	}
	s.Outputs[step] = value
}

// SetError records a failure against a step.
func (s *State) SetError(step string, err error) {
	if err != nil {
		s.FailedStep = step
		s.Error = err.Error()
	}
}

// HasError returns true if a step has failed.
func (s State) HasError() bool {
	return s.Error != ""
}

// FinalizeDuration sets total duration from start time.
func (s *State) FinalizeDuration() {
	s.TotalDuration = time.Since(s.StartTime)
}

// Summary returns a human-readable summary of the run.
func (s State) Summary() string {
	status := "completed"
	if s.HasError() {
		status = fmt.Sprintf("failed at %s", s.FailedStep)
	}
	return fmt.Sprintf("Run %s [%s]: %s (%s)", s.RunID, status, s.WorkflowID, s.Identifier)
}

// generateRunID creates a unique run ID: date, workflow, random suffix.
func generateRunID(workflowID string) string {
	timestamp := time.Now().Format("2006-01-02")
	suffix, err := gonanoid.Generate("0123456789abcdef", 8)
	if err != nil {
		suffix = fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s-%s", timestamp, workflowID, suffix)
}
