package driven

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// SnapshotData is the persisted form of a built index pair.
type SnapshotData struct {
	Meta   domain.IndexMeta
	QA     []domain.IndexEntry[domain.QAPair]
	Chunks []domain.IndexEntry[domain.Chunk]
}

// SnapshotStore persists index snapshots.
type SnapshotStore interface {
	// SaveSnapshot replaces the stored snapshot in one transaction.
	SaveSnapshot(ctx context.Context, data *SnapshotData) error

	// LoadSnapshot returns the stored snapshot.
	// Returns domain.ErrNotFound when nothing has been saved.
	LoadSnapshot(ctx context.Context) (*SnapshotData, error)
}
