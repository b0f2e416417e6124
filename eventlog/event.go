package eventlog

import (
	"encoding/json"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Status is the outcome recorded on an event.
type Status string

// Event statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Type identifies what kind of step an event records.
type Type string

// Well-known event types. Pipelines may define their own.
const (
	TypeExtraction     Type = "extraction"
	TypeScoring        Type = "scoring"
	TypeImprovement    Type = "improvement"
	TypeAlignmentCheck Type = "alignment_check"
	TypePromotion      Type = "promotion"
	TypeClassification Type = "classification"
	TypeMatching       Type = "matching"
	TypeSync           Type = "sync"
	TypeError          Type = "error"
)

// Event is one immutable fact about a workflow run.
//
// SourceEventID references the causally preceding event; the events of a
// workflow, in append order, form a directed acyclic chain through it.
type Event struct {
	EventID       string         `json:"event_id"`
	WorkflowID    string         `json:"workflow_id"`
	EventType     Type           `json:"event_type"`
	AgentName     string         `json:"agent_name"`
	AgentVersion  string         `json:"agent_version"`
	Timestamp     time.Time      `json:"timestamp"`
	StepID        string         `json:"step_id,omitempty"`
	PromptVersion string         `json:"prompt_version,omitempty"`
	Status        Status         `json:"status"`
	Payload       map[string]any `json:"payload,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
	SourceEventID string         `json:"source_event_id,omitempty"`

	// extra holds fields from persisted records this version does not
	// understand, so they survive a round-trip.
	extra map[string]json.RawMessage
}

// New creates an event with a fresh ID and the current timestamp.
func New(workflowID string, eventType Type, status Status) Event {
	return Event{
		EventID:    NewEventID(),
		WorkflowID: workflowID,
		EventType:  eventType,
		Status:     status,
		Timestamp:  time.Now().UTC(),
	}
}

// NewEventID generates a unique event ID.
func NewEventID() string {
	id, err := nanoid.New()
	if err != nil {
		// nanoid only fails when the OS entropy source does; fall back to
		// a timestamp-derived ID rather than emitting an empty one.
		return "evt-" + time.Now().UTC().Format("20060102T150405.000000000")
	}
	return id
}

// IsError reports whether the event records a failure.
func (e Event) IsError() bool {
	return e.Status == StatusError
}

// knownFields are the JSON keys owned by this Event version.
var knownFields = map[string]bool{
	"event_id":        true,
	"workflow_id":     true,
	"event_type":      true,
	"agent_name":      true,
	"agent_version":   true,
	"timestamp":       true,
	"step_id":         true,
	"prompt_version":  true,
	"status":          true,
	"payload":         true,
	"meta":            true,
	"source_event_id": true,
}

// eventAlias avoids recursing into the custom JSON methods.
type eventAlias Event

// MarshalJSON emits the event's fields plus any preserved unknown fields.
func (e Event) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(eventAlias(e))
	if err != nil {
		return nil, err
	}
	if len(e.extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.extra {
		if !knownFields[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes an event, stashing unknown fields for round-trip.
func (e *Event) UnmarshalJSON(data []byte) error {
	var alias eventAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownFields[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		alias.extra = raw
	}

	*e = Event(alias)
	return nil
}
