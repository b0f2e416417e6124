package eventlog

import "errors"

// Event log errors.
var (
	// ErrLogWrite indicates a record could not be appended. A step whose
	// outcome cannot be durably recorded must not be treated as succeeded,
	// so callers abort the run on this error.
	ErrLogWrite = errors.New("event log write failed")

	// ErrEmptyWorkflowID indicates an event without a workflow ID, which
	// cannot be routed to a log file.
	ErrEmptyWorkflowID = errors.New("event has empty workflow_id")
)
