package driven

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// CorpusLoader reads documents and curated Q&A pairs from storage.
type CorpusLoader interface {
	// LoadDocuments reads and normalises every supported file under dir.
	LoadDocuments(ctx context.Context, dir string) ([]domain.Document, error)

	// LoadQAPairs reads curated pairs from path.
	LoadQAPairs(ctx context.Context, path string) ([]domain.QAPair, error)
}

// CorpusWatcher reports file changes under the corpus paths.
type CorpusWatcher interface {
	// Watch observes paths (directories recursively, or single files) and
	// calls onChange with each debounced batch of changes. It blocks until
	// ctx is cancelled or the watcher fails.
	Watch(ctx context.Context, paths []string, onChange func(ctx context.Context, changes []domain.CorpusChange)) error
}
