package eventlog

import (
	"bufio"
	"encoding/json"
	"io"
)

// Replay is a lazy cursor over a workflow's event records in append order,
// in the manner of sql.Rows:
//
//	replay, err := log.Replay(id)
//	...
//	defer replay.Close()
//	for replay.Next() {
//	    ev := replay.Event()
//	    ...
//	}
//	if err := replay.Err(); err != nil { ... }
//
// Malformed individual lines are counted and skipped, never fatal. A fresh
// cursor from Replay restarts from the beginning.
type Replay struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	current Event
	skipped int
	err     error
}

func newReplay(rc io.ReadCloser) *Replay {
	scanner := bufio.NewScanner(rc)
	// Events embed opaque payloads; allow long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Replay{rc: rc, scanner: scanner}
}

func emptyReplay() *Replay {
	return &Replay{}
}

// Next advances to the next well-formed record.
// Returns false at end of log or on read error.
func (r *Replay) Next() bool {
	if r.scanner == nil || r.err != nil {
		return false
	}
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			r.skipped++
			continue
		}
		r.current = ev
		return true
	}
	r.err = r.scanner.Err()
	return false
}

// Event returns the record at the cursor. Valid after Next returns true.
func (r *Replay) Event() Event {
	return r.current
}

// Skipped returns how many malformed records were skipped so far.
func (r *Replay) Skipped() int {
	return r.skipped
}

// Err returns the first read error encountered, if any.
func (r *Replay) Err() error {
	return r.err
}

// Close releases the underlying reader.
func (r *Replay) Close() error {
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}

// Collect drains a cursor into a slice and closes it.
func Collect(r *Replay) ([]Event, error) {
	defer r.Close()

	var events []Event
	for r.Next() {
		events = append(events, r.Event())
	}
	return events, r.Err()
}
