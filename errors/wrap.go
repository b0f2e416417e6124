package errors

import (
	"fmt"

	"github.com/promptlab/promptflow/align"
	"github.com/promptlab/promptflow/scoring"
)

// WrapEvaluationError wraps evaluator failures with operator guidance. Errors
// that do not look like availability problems pass through unchanged.
func WrapEvaluationError(err error) error {
	if err == nil {
		return nil
	}

	if !IsEvaluationUnavailable(err) {
		return err
	}

	return &FaultError{
		Err:     scoring.ErrEvaluationUnavailable,
		Message: "The evaluator could not be reached.",
		Details: err.Error(),
		Suggestion: "Check that:\n" +
			"  - The evaluation backend is running\n" +
			"  - Your network connection is working\n" +
			"The lineage was aborted without consuming retry budget.",
	}
}

// NewMissingArtifactError creates a fault for an artifact or report that is
// absent from its resolved location.
func NewMissingArtifactError(identifier string) error {
	return &FaultError{
		Err:     align.ErrMissingArtifact,
		Message: fmt.Sprintf("Artifact %s does not exist at its resolved location.", identifier),
		Suggestion: "Check that the identifier names a saved artifact and that\n" +
			"earlier pipeline steps completed before this one ran.",
	}
}

// WrapLogError wraps event log append failures. An outcome whose event cannot
// be recorded must not be treated as having happened, so these always surface.
func WrapLogError(err error, workflowID string) error {
	if err == nil {
		return nil
	}

	return &FaultError{
		Err:        err,
		Message:    fmt.Sprintf("Could not append to the event log for workflow %s.", workflowID),
		Details:    err.Error(),
		Suggestion: "Check that the log directory is writable and has free space.",
	}
}
