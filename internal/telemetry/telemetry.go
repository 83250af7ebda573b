// Package telemetry provides a JSONL event stream recording every task
// mutation: creations, status changes, queue moves, dependency edits, and
// normalization passes. The stream makes tracker activity auditable and
// replayable without querying the database.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindTaskCreated       = "task_created"
	KindTaskUpdated       = "task_updated"
	KindTaskDeleted       = "task_deleted"
	KindStatusChanged     = "status_changed"
	KindQueueChanged      = "queue_changed"
	KindQueueNormalized   = "queue_normalized"
	KindDependencyAdded   = "dependency_added"
	KindDependencyRemoved = "dependency_removed"
	KindNoteAdded         = "note_added"
)

// Event represents a single telemetry record. Each event carries a
// timestamp, a kind tag, and an optional task id along with arbitrary
// structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	TaskID    int64     `json:"task,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes a single event to the JSONL file, stamping the current time
// if the event carries none. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record is shorthand for emitting a kind/task/data triple.
func (e *Emitter) Record(kind string, taskID int64, data any) error {
	return e.Emit(Event{Kind: kind, TaskID: taskID, Data: data})
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
