package errors

import (
	"errors"
	"strings"

	"github.com/promptlab/promptflow/align"
	"github.com/promptlab/promptflow/artifact"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/scoring"
	"github.com/promptlab/promptflow/store"
)

// IsMalformedIdentifier checks if an error stems from an unparseable
// artifact identifier.
func IsMalformedIdentifier(err error) bool {
	return errors.Is(err, artifact.ErrMalformedIdentifier)
}

// IsInvalidVersion checks if an error stems from a bad semantic version.
func IsInvalidVersion(err error) bool {
	return errors.Is(err, artifact.ErrInvalidVersion)
}

// IsMissingArtifact checks if an error means an expected artifact or report
// does not exist at its resolved location.
func IsMissingArtifact(err error) bool {
	return errors.Is(err, align.ErrMissingArtifact) || errors.Is(err, store.ErrNotFound)
}

// IsEvaluationUnavailable checks if an error means the evaluator could not
// run at all. This includes timeouts and network connectivity issues.
func IsEvaluationUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, scoring.ErrEvaluationUnavailable) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	// Network connectivity
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp") {
		return true
	}
	// Timeout errors
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	return false
}

// IsLogWrite checks if an error means an event could not be durably appended.
func IsLogWrite(err error) bool {
	return errors.Is(err, eventlog.ErrLogWrite)
}

// IsDataIntegrity checks if an error is one of the faults that must abort a
// lineage directly: malformed identifiers, invalid versions, or missing
// artifacts.
func IsDataIntegrity(err error) bool {
	return IsMalformedIdentifier(err) || IsInvalidVersion(err) || IsMissingArtifact(err)
}

// IsFault checks if an error belongs to the lifecycle fault taxonomy at all.
// Quality failures are not faults and never match.
func IsFault(err error) bool {
	return IsDataIntegrity(err) || IsEvaluationUnavailable(err) || IsLogWrite(err)
}

// Classify names the fault category of an error for event payloads and
// operator output. Errors outside the taxonomy classify as "".
func Classify(err error) string {
	switch {
	case IsMalformedIdentifier(err):
		return "malformed_identifier"
	case IsInvalidVersion(err):
		return "invalid_version"
	case IsMissingArtifact(err):
		return "missing_artifact"
	case IsLogWrite(err):
		return "log_write"
	case IsEvaluationUnavailable(err):
		return "evaluation_unavailable"
	default:
		return ""
	}
}
