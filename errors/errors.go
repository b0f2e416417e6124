package errors

import "strings"

// FaultError wraps a lifecycle fault with operator-facing context.
type FaultError struct {
	// Err is the underlying error
	Err error

	// Message is a description of what went wrong
	Message string

	// Suggestion is an actionable hint for the operator
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *FaultError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *FaultError) Unwrap() error {
	return e.Err
}
