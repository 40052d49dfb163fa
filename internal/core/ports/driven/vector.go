package driven

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// VectorIndex provides exact nearest-neighbour search over a fixed set of
// entries. An index is immutable once built and safe for concurrent search.
type VectorIndex[P any] interface {
	// Search finds up to k entries nearest to the query by Euclidean distance.
	// Hits are ordered by ascending distance; ties keep insertion order.
	// An empty index returns no hits and no error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit[P], error)

	// Len returns the number of entries.
	Len() int

	// Dimension returns the vector size, or 0 for an empty index.
	Dimension() int

	// Entries returns the indexed entries in insertion order.
	Entries() []domain.IndexEntry[P]
}

// VectorHit represents a nearest-neighbour result.
type VectorHit[P any] struct {
	// Distance is the L2 distance to the query (lower is closer).
	Distance float64

	// Payload is the entry's payload.
	Payload P
}

// VectorIndexFactory builds an index from entries.
type VectorIndexFactory[P any] func(entries []domain.IndexEntry[P]) (VectorIndex[P], error)
