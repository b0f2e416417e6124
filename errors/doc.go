// Package errors provides predicates and wrappers for the lifecycle fault
// taxonomy.
//
// Sentinel errors live in their owning packages; this package classifies
// them across package boundaries:
//   - IsMalformedIdentifier: artifact.ErrMalformedIdentifier
//   - IsInvalidVersion: artifact.ErrInvalidVersion
//   - IsMissingArtifact: align.ErrMissingArtifact, store.ErrNotFound
//   - IsEvaluationUnavailable: scoring.ErrEvaluationUnavailable and
//     network/timeout failures
//   - IsLogWrite: eventlog.ErrLogWrite
//
// A quality failure (score below threshold) is a domain outcome, not an
// error, and matches none of the predicates.
//
// Example usage:
//
//	outcome, err := ctrl.Run(ctx, workflowID, ref, "")
//	if errors.IsEvaluationUnavailable(err) {
//	    return errors.WrapEvaluationError(err)
//	}
//	if errors.IsDataIntegrity(err) {
//	    // The lineage aborted without consuming retry budget.
//	}
package errors
