// Package multi fans audit events out to several sinks.
package multi

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.AuditSink = (Sink)(nil)

// Sink emits every event to each of its sinks in order.
type Sink []driven.AuditSink

// New drops nil sinks and returns the fan-out.
func New(sinks ...driven.AuditSink) Sink {
	out := make(Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Emit forwards the event to every sink.
func (m Sink) Emit(ctx context.Context, event domain.AuditEvent) {
	for _, s := range m {
		s.Emit(ctx, event)
	}
}
