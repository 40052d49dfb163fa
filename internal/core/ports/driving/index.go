package driving

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// IndexService manages the lifecycle of the Q&A and document indices.
type IndexService interface {
	// Startup loads the persisted snapshot and makes it live.
	// Returns domain.ErrIndexUnavailable when nothing was persisted.
	Startup(ctx context.Context) error

	// Rebuild builds a snapshot from corpus, persists it and swaps it in.
	// Queries in flight keep using the previous snapshot.
	Rebuild(ctx context.Context, corpus domain.Corpus) (domain.IndexMeta, error)

	// Info describes the live snapshot.
	// Returns domain.ErrIndexUnavailable when no snapshot is live.
	Info() (domain.IndexMeta, error)
}
