package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

// StatsService reports query usage from the stats and unresolved stores.
// Either store may be nil.
type StatsService struct {
	stats      driven.StatsStore
	unresolved driven.UnresolvedStore
}

// NewStatsService creates a new stats service.
func NewStatsService(stats driven.StatsStore, unresolved driven.UnresolvedStore) *StatsService {
	return &StatsService{stats: stats, unresolved: unresolved}
}

// TopQueries returns the n most asked queries, or the default popular
// list when nothing has been recorded.
func (s *StatsService) TopQueries(ctx context.Context, n int) ([]domain.QueryCount, error) {
	if n <= 0 {
		return nil, nil
	}

	var top []domain.QueryCount
	if s.stats != nil {
		var err error
		top, err = s.stats.TopQueries(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("top queries: %w", err)
		}
	}
	if len(top) > 0 {
		return top, nil
	}

	defaults := domain.DefaultPopularQueries()
	out := make([]domain.QueryCount, 0, min(n, len(defaults)))
	for _, q := range defaults[:min(n, len(defaults))] {
		out = append(out, domain.QueryCount{Query: q})
	}
	return out, nil
}

// Unresolved returns the most recent refused queries.
func (s *StatsService) Unresolved(ctx context.Context, limit int) ([]domain.UnresolvedQuery, error) {
	if s.unresolved == nil {
		return nil, nil
	}
	out, err := s.unresolved.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("unresolved queries: %w", err)
	}
	return out, nil
}
