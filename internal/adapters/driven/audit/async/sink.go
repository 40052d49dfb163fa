// Package async provides a fire-and-forget audit sink. Events are queued
// on a bounded channel and delivered by a single goroutine; when the
// queue is full the event is dropped and counted, so Emit never blocks.
package async

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.AuditSink = (*Sink)(nil)

// DefaultBuffer is the queue length used when none is given.
const DefaultBuffer = 256

// Option configures a Sink.
type Option func(*Sink)

// WithOnDrop registers a callback invoked for every dropped event.
func WithOnDrop(fn func()) Option {
	return func(s *Sink) { s.onDrop = fn }
}

// Sink forwards events to an inner sink in the background.
type Sink struct {
	inner   driven.AuditSink
	events  chan domain.AuditEvent
	done    chan struct{}
	onDrop  func()
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// New starts the delivery goroutine. Call Close to flush and stop it.
func New(inner driven.AuditSink, buffer int, opts ...Option) *Sink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Sink{
		inner:  inner,
		events: make(chan domain.AuditEvent, buffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

func (s *Sink) run() {
	defer close(s.done)
	for event := range s.events {
		// Delivery outlives the query that produced the event.
		s.inner.Emit(context.Background(), event)
	}
}

// Emit queues the event, or drops it when the queue is full or the sink
// is closed.
func (s *Sink) Emit(_ context.Context, event domain.AuditEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop()
		return
	}
	select {
	case s.events <- event:
	default:
		s.drop()
	}
}

func (s *Sink) drop() {
	s.dropped.Add(1)
	if s.onDrop != nil {
		s.onDrop()
	}
}

// Dropped returns how many events were discarded.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops accepting events, delivers everything already queued and
// waits for the goroutine to exit. It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}
