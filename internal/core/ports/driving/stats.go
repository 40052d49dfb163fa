package driving

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// StatsService reports query usage.
type StatsService interface {
	// TopQueries returns the n most asked queries. Before any query is
	// recorded it returns the default popular list.
	TopQueries(ctx context.Context, n int) ([]domain.QueryCount, error)

	// Unresolved returns the most recent refused queries.
	Unresolved(ctx context.Context, limit int) ([]domain.UnresolvedQuery, error)
}
