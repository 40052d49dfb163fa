package mcp

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
	query  string
}

func (m *mockAnswerService) Ask(_ context.Context, query string) (*domain.Answer, error) {
	m.query = query
	return m.answer, m.err
}

// mockStatsService is a mock implementation of driving.StatsService.
type mockStatsService struct {
	top        []domain.QueryCount
	unresolved []domain.UnresolvedQuery
	err        error
	limit      int
}

func (m *mockStatsService) TopQueries(_ context.Context, n int) ([]domain.QueryCount, error) {
	m.limit = n
	return m.top, m.err
}

func (m *mockStatsService) Unresolved(_ context.Context, limit int) ([]domain.UnresolvedQuery, error) {
	m.limit = limit
	return m.unresolved, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	meta domain.IndexMeta
	err  error
}

func (m *mockIndexService) Startup(_ context.Context) error {
	return m.err
}

func (m *mockIndexService) Rebuild(_ context.Context, _ domain.Corpus) (domain.IndexMeta, error) {
	return m.meta, m.err
}

func (m *mockIndexService) Info() (domain.IndexMeta, error) {
	return m.meta, m.err
}

var (
	_ driving.AnswerService = (*mockAnswerService)(nil)
	_ driving.StatsService  = (*mockStatsService)(nil)
	_ driving.IndexService  = (*mockIndexService)(nil)
)
