package driven

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// UnresolvedStore records queries that were refused.
type UnresolvedStore interface {
	// RecordUnresolved stores q, folding repeats of the same query text.
	RecordUnresolved(ctx context.Context, q domain.UnresolvedQuery) error

	// ListUnresolved returns records ordered by most recent first.
	ListUnresolved(ctx context.Context, limit int) ([]domain.UnresolvedQuery, error)
}

// StatsStore counts how often each query is asked.
type StatsStore interface {
	// IncrementQuery adds one to the counter for query.
	IncrementQuery(ctx context.Context, query string) error

	// TopQueries returns up to n queries by descending count.
	TopQueries(ctx context.Context, n int) ([]domain.QueryCount, error)
}
