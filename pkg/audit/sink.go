// Package audit records security-relevant events from the verification flow.
// The sink is append-only and fire-and-forget: recording never blocks or
// fails the operation that produced the event, and subject identifiers are
// masked before they reach it.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is one audit entry. Subject must already be masked by the caller;
// full identifiers belong in server-side logs only.
type Event struct {
	TraceID  string
	Subject  string
	Name     string
	Metadata map[string]string
	At       time.Time
}

// Sink records events. Implementations swallow their own failures.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// SlogSink writes audit events to the structured log.
type SlogSink struct{}

// NewSlogSink creates a log-backed audit sink.
func NewSlogSink() *SlogSink {
	return &SlogSink{}
}

func (s *SlogSink) Record(ctx context.Context, ev Event) {
	attrs := []any{
		"trace_id", ev.TraceID,
		"subject", ev.Subject,
		"event", ev.Name,
	}
	for k, v := range ev.Metadata {
		attrs = append(attrs, k, v)
	}
	slog.InfoContext(ctx, "audit", attrs...)
}

// MemorySink collects events in memory. Used in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Named returns recorded events matching the given name.
func (s *MemorySink) Named(name string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, ev := range s.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}
