// Package telemetry provides a JSONL event stream for recording vault
// lifecycle transitions: scans, reconciliations, duplicate-identifier
// warnings, and archive moves. Every event is one structured JSON line,
// making a running supervisor auditable after the fact.
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
	KindScanStart      = "scan_start"
	KindScanDone       = "scan_done"
	KindReconciled     = "reconciled"
	KindEntityRemoved  = "entity_removed"
	KindPathUnmapped   = "path_unmapped"
	KindDuplicateID    = "duplicate_id"
	KindCycleRejected  = "cycle_rejected"
	KindEntityWritten  = "entity_written"
	KindEntityArchived = "entity_archived"
	KindEntityRestored = "entity_restored"
	KindStorageFailure = "storage_failure"
	KindWatchStarted   = "watch_started"
	KindWatchStopped   = "watch_stopped"
)

// Event represents a single telemetry record. Each event carries a
// timestamp, a kind tag, and optional context identifiers (entity, path)
// along with arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity,omitempty"`
	Path      string    `json:"path,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for
// concurrent use by multiple goroutines. A nil *Emitter is a valid no-op
// emitter, so callers never need to branch on whether telemetry is
// enabled.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file
// at path. The file is created if it does not exist, or appended to if
// it does.
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

// Emit writes a single event to the JSONL file. A zero timestamp is
// filled in with the current time. Calling Emit on a nil Emitter is a
// no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
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
