// Package controller drives one artifact lineage through the
// evaluate → improve → promote loop.
//
// Each lineage is a small state machine: Evaluating transitions to
// Promoting when the scoring gate passes, to Retrying while the retry
// budget lasts, and to Aborted when it is exhausted or a data-integrity
// fault occurs. Every transition appends exactly one event to the workflow
// log, chained by source_event_id, so the full path from first evaluation
// to terminal outcome is auditable.
//
// Quality failure is not an error: a score below threshold is the expected
// "needs another attempt" outcome. Malformed identifiers, invalid versions,
// missing report artifacts, and evaluator unavailability are faults; they
// are logged and abort the lineage without consuming retry budget.
package controller
