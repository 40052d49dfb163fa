// Package memory provides an audit sink that keeps events in memory.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.AuditSink = (*Sink)(nil)

// Sink records events. It is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

// New creates an empty recorder.
func New() *Sink {
	return &Sink{}
}

// Emit records the event.
func (s *Sink) Emit(_ context.Context, event domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the recorded events.
func (s *Sink) Events() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ByQuery returns the events recorded for one query, in order.
func (s *Sink) ByQuery(queryID string) []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range s.events {
		if e.QueryID == queryID {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards all events.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
