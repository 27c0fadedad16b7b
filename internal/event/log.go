package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is the on-disk form of a coordination event. One JSON object per
// line, in acceptance order. Seq is assigned by the writer and is strictly
// increasing within an attempt.
type Record struct {
	Seq       int            `json:"seq"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Label     string         `json:"label,omitempty"`
	Tag       string         `json:"tag,omitempty"`
	Target    string         `json:"target,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Round     int            `json:"round,omitempty"`
	Snapshot  string         `json:"snapshot,omitempty"`
	Winner    string         `json:"winner,omitempty"`
	Votes     int            `json:"votes,omitempty"`
	Tally     map[string]int `json:"tally,omitempty"`
	From      string         `json:"from,omitempty"`
	To        string         `json:"to,omitempty"`
}

// Log is an append-only JSONL event log for one attempt. It implements
// the ordered structured session log required for reproducible replay.
// Safe for concurrent use; writes are serialized.
type Log struct {
	mu   sync.Mutex
	file *os.File
	seq  int
}

// OpenLog opens (creating if needed) the event log at path. Parent
// directories are created.
func OpenLog(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &Log{file: f}, nil
}

// Append converts an event to a Record, assigns the next sequence number,
// and writes it as one JSON line.
func (l *Log) Append(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("event log is closed")
	}

	l.seq++
	rec := toRecord(e)
	rec.Seq = l.seq

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal event record: %w", err)
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append event record: %w", err)
	}
	return nil
}

// AttachTo subscribes the log to every event published on the bus.
// Returns the subscription ID.
func (l *Log) AttachTo(bus *Bus) string {
	return bus.SubscribeAll(func(e Event) {
		// Append errors are not recoverable from a bus handler; the file
		// error will resurface on Close.
		_ = l.Append(e)
	})
}

// Close syncs and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event log: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadLog reads all records from an event log file, in order.
func ReadLog(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode event record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// toRecord flattens a typed event into its persisted form.
func toRecord(e Event) Record {
	rec := Record{
		Type:      e.EventType(),
		Timestamp: e.Timestamp(),
	}

	switch ev := e.(type) {
	case NewAnswerEvent:
		rec.WorkerID = ev.WorkerID
		rec.Label = ev.Label
		rec.Tag = ev.Tag
		rec.Round = ev.Round
		rec.Snapshot = ev.SnapshotRef
	case VoteEvent:
		rec.WorkerID = ev.WorkerID
		rec.Target = ev.Target
		rec.Reason = ev.Reason
	case RestartEvent:
		rec.Round = ev.NextAttempt
		rec.Reason = ev.Reason
		rec.WorkerID = ev.RequestedBy
	case TimeoutEvent:
		rec.Winner = ev.Winner
	case FinalAnswerEvent:
		rec.Label = ev.Label
		rec.WorkerID = ev.WorkerID
		rec.Votes = ev.Votes
		rec.Tally = ev.Tally
	case PhaseChangeEvent:
		rec.From = ev.From
		rec.To = ev.To
	}
	return rec
}
