package pipeline

import "errors"

// Sentinel errors for pipeline orchestration.
var (
	// ErrStepFailed indicates a step produced an error event and the run
	// stopped fail-fast. The returned State names the failing step.
	ErrStepFailed = errors.New("pipeline step failed")

	// ErrNoSteps indicates a pipeline was configured without steps.
	ErrNoSteps = errors.New("pipeline has no steps")

	// ErrDuplicateStep indicates two steps share a name.
	ErrDuplicateStep = errors.New("duplicate step name")
)
