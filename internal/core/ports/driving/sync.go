package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// SyncService reloads the corpus from disk and rebuilds the indices.
type SyncService interface {
	// LoadCorpus reads documents and Q&A pairs from the configured paths.
	LoadCorpus(ctx context.Context) (domain.Corpus, error)

	// Sync loads the corpus and rebuilds the indices from it.
	Sync(ctx context.Context) (domain.IndexMeta, error)

	// Watch rebuilds the indices whenever the corpus changes on disk.
	// It blocks until ctx is cancelled.
	Watch(ctx context.Context) error

	// Status returns the state of the most recent sync.
	Status() SyncStatus
}

// SyncStatus represents the state of corpus synchronisation.
type SyncStatus struct {
	Running   bool
	Syncs     int
	LastSync  time.Time
	LastError string
	LastMeta  domain.IndexMeta
}
