package flat

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

func entries(vectors ...[]float32) []domain.IndexEntry[string] {
	out := make([]domain.IndexEntry[string], len(vectors))
	for i, v := range vectors {
		out[i] = domain.IndexEntry[string]{Vector: v, Payload: string(rune('a' + i))}
	}
	return out
}

func TestBuild_Empty(t *testing.T) {
	idx, err := Build[string](nil)

	require.NoError(t, err)
	assert.Zero(t, idx.Len())
	assert.Zero(t, idx.Dimension())

	hits, err := idx.Search(context.Background(), []float32{1, 2}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	_, err := Build(entries([]float32{1, 2}, []float32{1, 2, 3}))

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestBuild_EmptyVector(t *testing.T) {
	_, err := Build(entries([]float32{}))

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestBuild_CopiesVectors(t *testing.T) {
	v := []float32{1, 1}
	idx, err := Build(entries(v))
	require.NoError(t, err)

	v[0] = 100

	assert.Equal(t, float32(1), idx.Entries()[0].Vector[0])
}

func TestSearch_OrdersByDistance(t *testing.T) {
	idx, err := Build(entries(
		[]float32{3, 0},
		[]float32{0, 0},
		[]float32{1, 0},
	))
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{0, 0}, 3)

	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "b", hits[0].Payload)
	assert.Equal(t, "c", hits[1].Payload)
	assert.Equal(t, "a", hits[2].Payload)
	assert.Equal(t, 0.0, hits[0].Distance)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-12)
	assert.InDelta(t, 3.0, hits[2].Distance, 1e-12)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := Build(entries(
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{0, -1},
	))
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{0, 0}, 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Payload)
	assert.Equal(t, "b", hits[1].Payload)
}

func TestSearch_KBounds(t *testing.T) {
	idx, err := Build(entries([]float32{1}, []float32{2}))
	require.NoError(t, err)
	ctx := context.Background()

	hits, err := idx.Search(ctx, []float32{0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search(ctx, []float32{0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	idx, err := Build(entries([]float32{1, 2}))
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1}, 1)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearch_CancelledContext(t *testing.T) {
	idx, err := Build(entries([]float32{1}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = idx.Search(ctx, []float32{1}, 1)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_RebuildIsReproducible(t *testing.T) {
	vecs := entries(
		[]float32{0.1, 0.2, 0.3},
		[]float32{0.3, 0.2, 0.1},
		[]float32{0.2, 0.2, 0.2},
	)
	first, err := Build(vecs)
	require.NoError(t, err)
	second, err := Build(first.Entries())
	require.NoError(t, err)

	q := []float32{0.25, 0.2, 0.15}
	a, err := first.Search(context.Background(), q, 3)
	require.NoError(t, err)
	b, err := second.Search(context.Background(), q, 3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance([]float32{0, 0}, []float32{3, 4}))
	assert.Equal(t, 0.0, Distance([]float32{1, 2}, []float32{1, 2}))
	assert.False(t, math.IsNaN(Distance(nil, nil)))
}

func TestFactory(t *testing.T) {
	build := Factory[string]()

	idx, err := build(entries([]float32{1, 0}))

	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 2, idx.Dimension())
}
