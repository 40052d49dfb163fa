package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure QueryLog implements the interfaces.
var (
	_ driven.UnresolvedStore = (*QueryLog)(nil)
	_ driven.StatsStore      = (*QueryLog)(nil)
)

// QueryLog is an in-memory implementation of driven.UnresolvedStore and
// driven.StatsStore.
type QueryLog struct {
	mu         sync.RWMutex
	unresolved map[string]domain.UnresolvedQuery
	counts     map[string]queryCount
}

type queryCount struct {
	count     int
	lastAsked time.Time
}

// NewQueryLog creates a new in-memory query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{
		unresolved: make(map[string]domain.UnresolvedQuery),
		counts:     make(map[string]queryCount),
	}
}

// RecordUnresolved stores q, folding repeats of the same query text.
func (l *QueryLog) RecordUnresolved(_ context.Context, q domain.UnresolvedQuery) error {
	now := time.Now().UTC()
	q.Query = strings.TrimSpace(q.Query)
	q.Count = max(q.Count, 1)
	if q.FirstSeen.IsZero() {
		q.FirstSeen = now
	}
	if q.LastSeen.IsZero() {
		q.LastSeen = now
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.unresolved[q.Query]; ok {
		q.Count += prev.Count
		q.FirstSeen = prev.FirstSeen
	}
	l.unresolved[q.Query] = q
	return nil
}

// ListUnresolved returns records by most recent first.
// A limit of zero or less returns every record.
func (l *QueryLog) ListUnresolved(_ context.Context, limit int) ([]domain.UnresolvedQuery, error) {
	l.mu.RLock()
	out := make([]domain.UnresolvedQuery, 0, len(l.unresolved))
	for _, q := range l.unresolved {
		out = append(out, q)
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.UnresolvedQuery) int {
		return cmp.Or(b.LastSeen.Compare(a.LastSeen), cmp.Compare(a.Query, b.Query))
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// IncrementQuery adds one to the counter for query.
func (l *QueryLog) IncrementQuery(_ context.Context, query string) error {
	key, ok := domain.StatQueryKey(query)
	if !ok {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.counts[key]
	c.count++
	c.lastAsked = time.Now()
	l.counts[key] = c
	return nil
}

// TopQueries returns up to n queries by descending count, most recently
// asked first among equal counts.
func (l *QueryLog) TopQueries(_ context.Context, n int) ([]domain.QueryCount, error) {
	if n <= 0 {
		return nil, nil
	}

	type ranked struct {
		domain.QueryCount
		lastAsked time.Time
	}
	l.mu.RLock()
	all := make([]ranked, 0, len(l.counts))
	for q, c := range l.counts {
		all = append(all, ranked{QueryCount: domain.QueryCount{Query: q, Count: c.count}, lastAsked: c.lastAsked})
	}
	l.mu.RUnlock()

	slices.SortFunc(all, func(a, b ranked) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			b.lastAsked.Compare(a.lastAsked),
			cmp.Compare(a.Query, b.Query),
		)
	})

	out := make([]domain.QueryCount, 0, min(n, len(all)))
	for _, r := range all[:min(n, len(all))] {
		out = append(out, r.QueryCount)
	}
	return out, nil
}
