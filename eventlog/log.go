package eventlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Log is the append/replay contract for a workflow event log.
type Log interface {
	// Append records one event. Atomic at record granularity: a crash must
	// not leave a half-written record visible to a later reader. Appending
	// does not deduplicate; callers append each produced event exactly once.
	Append(event Event) error

	// Replay returns a cursor over all records for a workflow in append
	// order. Malformed records are skipped, not fatal.
	Replay(workflowID string) (*Replay, error)
}

// FileLog stores one JSONL file per workflow under a root directory.
type FileLog struct {
	root string
}

// NewFileLog creates a file-backed event log rooted at dir.
func NewFileLog(dir string) (*FileLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log root: %w", err)
	}
	return &FileLog{root: dir}, nil
}

// Path returns the log file for a workflow. Pure function of workflow ID
// and the configured root; distinct workflows never share a file.
func (l *FileLog) Path(workflowID string) string {
	return filepath.Join(l.root, workflowID+".jsonl")
}

// Append serializes the event as one line and appends it to the workflow's
// log. The record is written with a single write call so a concurrent or
// subsequent reader never observes a partial record followed by more data.
func (l *FileLog) Append(event Event) error {
	if event.WorkflowID == "" {
		return ErrEmptyWorkflowID
	}

	line, err := marshalRecord(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogWrite, err)
	}

	f, err := os.OpenFile(l.Path(event.WorkflowID),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogWrite, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("%w: %v", ErrLogWrite, err)
	}
	return nil
}

// Replay opens a cursor over the workflow's log.
// A workflow with no log yields an empty, valid cursor.
func (l *FileLog) Replay(workflowID string) (*Replay, error) {
	f, err := os.Open(l.Path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return emptyReplay(), nil
		}
		return nil, err
	}
	return newReplay(f), nil
}

// marshalRecord renders one self-contained JSONL record, newline included.
// Embedded newlines inside the JSON are stripped so the record stays on one
// line.
func marshalRecord(event Event) ([]byte, error) {
	data, err := event.MarshalJSON()
	if err != nil {
		return nil, err
	}
	data = bytes.ReplaceAll(data, []byte("\n"), nil)
	return append(data, '\n'), nil
}
