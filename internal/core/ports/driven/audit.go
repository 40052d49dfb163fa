package driven

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// AuditSink receives structured query events.
// Emit must not block query answering; sinks that do I/O are wrapped
// in an asynchronous sink.
type AuditSink interface {
	Emit(ctx context.Context, event domain.AuditEvent)
}
