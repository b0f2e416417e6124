// Package eventlog records workflow events as append-only JSON Lines.
//
// Each workflow run owns one log file, resolved purely from its workflow ID
// and the configured root. Events are immutable once appended; replaying a
// log returns records in append order through a cursor, skipping individual
// malformed lines so one corrupt record cannot poison the rest of the log.
//
// Events carry a source_event_id back-reference forming the causal chain of
// a run. Unknown fields in persisted records are preserved on round-trip.
package eventlog
