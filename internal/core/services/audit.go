package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

type queryIDKey struct{}

// WithQueryID attaches a query ID to ctx so nested components can
// correlate their audit events.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey{}, id)
}

// QueryIDFrom returns the query ID attached to ctx, if any.
func QueryIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(queryIDKey{}).(string)
	return id
}

// NewQueryID returns a short random query identifier.
func NewQueryID() string {
	return uuid.New().String()[:8]
}

// emit fills in the correlation fields and hands the event to sink.
// A nil sink discards the event.
func emit(ctx context.Context, sink driven.AuditSink, event domain.AuditEvent) {
	if sink == nil {
		return
	}
	if event.QueryID == "" {
		event.QueryID = QueryIDFrom(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	sink.Emit(ctx, event)
}
