package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

func TestSnapshotStore_LoadEmpty(t *testing.T) {
	store := NewSnapshotStore()

	_, err := store.LoadSnapshot(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	data := &driven.SnapshotData{
		Meta: domain.IndexMeta{EmbeddingModel: "hashing-bow", QAPairs: 1},
		QA: []domain.IndexEntry[domain.QAPair]{
			{Vector: []float32{1, 2}, Payload: domain.QAPair{Question: "q", Answer: "a"}},
		},
	}

	require.NoError(t, store.SaveSnapshot(ctx, data))
	got, err := store.LoadSnapshot(ctx)

	require.NoError(t, err)
	assert.Equal(t, data.Meta, got.Meta)
	assert.Equal(t, data.QA, got.QA)
	assert.Empty(t, got.Chunks)
}

func TestSnapshotStore_IsolatesCallers(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	data := &driven.SnapshotData{
		QA: []domain.IndexEntry[domain.QAPair]{{Vector: []float32{1, 2}}},
	}
	require.NoError(t, store.SaveSnapshot(ctx, data))

	data.QA[0].Vector[0] = 99
	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.QA[0].Vector[0])

	got.QA[0].Vector[1] = 99
	again, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(2), again.QA[0].Vector[1])
}
