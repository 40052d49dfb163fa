// Package flat provides an exact brute-force L2 vector index.
// Every search compares the query against every entry, so results are
// exact and reproducible across rebuilds of the same entries.
package flat

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex[domain.Chunk] = (*Index[domain.Chunk])(nil)

// Index is an immutable exact nearest-neighbour index.
// It is safe for concurrent Search calls.
type Index[P any] struct {
	dimension int
	entries   []domain.IndexEntry[P]
}

// Build creates an index over entries. Vectors are copied.
// Returns ErrDimensionMismatch if entries disagree on vector size.
// An empty entry list yields a valid empty index.
func Build[P any](entries []domain.IndexEntry[P]) (*Index[P], error) {
	idx := &Index[P]{entries: make([]domain.IndexEntry[P], len(entries))}

	for i, e := range entries {
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("%w: entry %d has an empty vector", domain.ErrDimensionMismatch, i)
		}
		if i == 0 {
			idx.dimension = len(e.Vector)
		} else if len(e.Vector) != idx.dimension {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, len(e.Vector), idx.dimension)
		}
		idx.entries[i] = domain.IndexEntry[P]{
			Vector:  slices.Clone(e.Vector),
			Payload: e.Payload,
		}
	}

	return idx, nil
}

// Factory adapts Build to driven.VectorIndexFactory.
func Factory[P any]() driven.VectorIndexFactory[P] {
	return func(entries []domain.IndexEntry[P]) (driven.VectorIndex[P], error) {
		return Build(entries)
	}
}

// Search returns up to k nearest entries by ascending Euclidean distance.
// Equal distances keep insertion order.
func (x *Index[P]) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit[P], error) {
	if k <= 0 || len(x.entries) == 0 {
		return nil, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), x.dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		pos  int
		dist float64
	}
	all := make([]scored, len(x.entries))
	for i, e := range x.entries {
		all[i] = scored{pos: i, dist: Distance(query, e.Vector)}
	}
	slices.SortStableFunc(all, func(a, b scored) int {
		return cmp.Compare(a.dist, b.dist)
	})

	k = min(k, len(all))
	hits := make([]driven.VectorHit[P], k)
	for i := range k {
		hits[i] = driven.VectorHit[P]{
			Distance: all[i].dist,
			Payload:  x.entries[all[i].pos].Payload,
		}
	}
	return hits, nil
}

// Len returns the number of entries.
func (x *Index[P]) Len() int {
	return len(x.entries)
}

// Dimension returns the vector size, or 0 for an empty index.
func (x *Index[P]) Dimension() int {
	return x.dimension
}

// Entries returns the entries in insertion order.
// Callers must not modify the returned vectors.
func (x *Index[P]) Entries() []domain.IndexEntry[P] {
	return x.entries
}

// Distance is the Euclidean distance between a and b computed in float64.
// Both vectors must have the same length.
func Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
