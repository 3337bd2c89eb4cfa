// Package journal keeps the operator-facing action log.
package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
)

const DefaultKeep = 10

type Entry struct {
	Channel string
	At      time.Time
	Action  string
	Details string
}

// Line renders the entry the way the admin panel shows it.
func (e Entry) Line() string {
	line := e.At.Format("15:04:05") + " - " + e.Action
	if e.Details != "" {
		line += ": " + e.Details
	}
	return line
}

type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// Memory holds the most recent entries, newest first.
type Memory struct {
	mu      sync.Mutex
	keep    int
	entries []Entry
}

func NewMemory(keep int) *Memory {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Memory{keep: keep}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append([]Entry{e}, m.entries...)
	if len(m.entries) > m.keep {
		m.entries = m.entries[:m.keep]
	}
	return nil
}

func (m *Memory) Recent() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func (m *Memory) Lines() []string {
	recent := m.Recent()
	lines := make([]string, len(recent))
	for i, e := range recent {
		lines[i] = e.Line()
	}
	return lines
}

// Recorder writes every entry to the in-memory log and any durable sinks.
type Recorder struct {
	*Memory
	sinks []Sink
}

func NewRecorder(mem *Memory, sinks ...Sink) *Recorder {
	if mem == nil {
		mem = NewMemory(DefaultKeep)
	}
	return &Recorder{Memory: mem, sinks: sinks}
}

func (r *Recorder) Append(ctx context.Context, e Entry) error {
	err := r.Memory.Append(ctx, e)
	for _, s := range r.sinks {
		err = multierr.Append(err, s.Append(ctx, e))
	}
	return err
}
