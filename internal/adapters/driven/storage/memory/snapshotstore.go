package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory implementation of driven.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data *driven.SnapshotData
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// SaveSnapshot replaces the stored snapshot with a copy of data.
func (s *SnapshotStore) SaveSnapshot(_ context.Context, data *driven.SnapshotData) error {
	cp := copySnapshot(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = cp
	return nil
}

// LoadSnapshot returns a copy of the stored snapshot.
func (s *SnapshotStore) LoadSnapshot(_ context.Context) (*driven.SnapshotData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, domain.ErrNotFound
	}
	return copySnapshot(s.data), nil
}

func copySnapshot(data *driven.SnapshotData) *driven.SnapshotData {
	return &driven.SnapshotData{
		Meta:   data.Meta,
		QA:     copyEntries(data.QA),
		Chunks: copyEntries(data.Chunks),
	}
}

func copyEntries[P any](entries []domain.IndexEntry[P]) []domain.IndexEntry[P] {
	out := make([]domain.IndexEntry[P], len(entries))
	for i, e := range entries {
		out[i] = domain.IndexEntry[P]{Vector: slices.Clone(e.Vector), Payload: e.Payload}
	}
	return out
}
