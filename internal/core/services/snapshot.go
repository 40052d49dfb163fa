package services

import (
	"sync/atomic"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Snapshot is a matched pair of indices built from one corpus with one
// embedding model. A snapshot is never modified after it is published.
type Snapshot struct {
	Meta   domain.IndexMeta
	QA     driven.VectorIndex[domain.QAPair]
	Chunks driven.VectorIndex[domain.Chunk]
}

// IndexHolder publishes the live snapshot. Readers take the pointer once
// per query, so a rebuild never changes the indices under a running query.
type IndexHolder struct {
	current atomic.Pointer[Snapshot]
}

// NewIndexHolder creates a holder with no live snapshot.
func NewIndexHolder() *IndexHolder {
	return &IndexHolder{}
}

// Load returns the live snapshot, or nil before the first publish.
func (h *IndexHolder) Load() *Snapshot {
	return h.current.Load()
}

// Swap publishes s and returns the previous snapshot.
func (h *IndexHolder) Swap(s *Snapshot) *Snapshot {
	return h.current.Swap(s)
}
