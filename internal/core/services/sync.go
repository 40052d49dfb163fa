package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
	"github.com/custodia-labs/concierge/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.SyncService = (*SyncService)(nil)

// SyncService coordinates corpus loading and index rebuilds.
type SyncService struct {
	loader  driven.CorpusLoader
	index   driving.IndexService
	paths   domain.PathSettings
	watcher driven.CorpusWatcher

	// syncMu serialises syncs triggered by the CLI and the watcher.
	syncMu sync.Mutex

	mu     sync.RWMutex
	status driving.SyncStatus
}

// NewSyncService creates a new sync service.
func NewSyncService(loader driven.CorpusLoader, index driving.IndexService, paths domain.PathSettings) *SyncService {
	return &SyncService{
		loader: loader,
		index:  index,
		paths:  paths,
	}
}

// SetWatcher sets the watcher used by Watch.
func (s *SyncService) SetWatcher(w driven.CorpusWatcher) {
	s.watcher = w
}

// LoadCorpus reads documents and Q&A pairs from the configured paths.
// At least one of the document directory and the Q&A file must be set.
func (s *SyncService) LoadCorpus(ctx context.Context) (domain.Corpus, error) {
	if s.paths.DocsDir == "" && s.paths.QAFile == "" {
		return domain.Corpus{}, fmt.Errorf("%w: neither %s nor %s is set",
			domain.ErrInvalidInput, KeyDocsDir, KeyQAFile)
	}

	var corpus domain.Corpus
	if s.paths.DocsDir != "" {
		docs, err := s.loader.LoadDocuments(ctx, s.paths.DocsDir)
		if err != nil {
			return domain.Corpus{}, fmt.Errorf("load documents: %w", err)
		}
		corpus.Documents = docs
	}
	if s.paths.QAFile != "" {
		pairs, err := s.loader.LoadQAPairs(ctx, s.paths.QAFile)
		if err != nil {
			return domain.Corpus{}, fmt.Errorf("load Q&A pairs: %w", err)
		}
		corpus.QAPairs = pairs
	}

	logger.Debug("Loaded corpus: %d documents, %d Q&A pairs", len(corpus.Documents), len(corpus.QAPairs))
	return corpus, nil
}

// Sync loads the corpus and rebuilds the indices. An empty corpus is an
// error so a misconfigured path never replaces a live index with nothing.
func (s *SyncService) Sync(ctx context.Context) (domain.IndexMeta, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.setRunning(true)
	logger.Info("Starting corpus sync")

	meta, err := s.sync(ctx)

	s.mu.Lock()
	s.status.Running = false
	s.status.Syncs++
	s.status.LastSync = time.Now()
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
		s.status.LastMeta = meta
	}
	s.mu.Unlock()

	if err != nil {
		logger.Warn("Corpus sync failed: %v", err)
		return domain.IndexMeta{}, err
	}
	logger.Info("Sync complete: %d documents, %d chunks, %d Q&A pairs", meta.Documents, meta.Chunks, meta.QAPairs)
	return meta, nil
}

func (s *SyncService) sync(ctx context.Context) (domain.IndexMeta, error) {
	corpus, err := s.LoadCorpus(ctx)
	if err != nil {
		return domain.IndexMeta{}, err
	}
	if corpus.IsEmpty() {
		return domain.IndexMeta{}, fmt.Errorf("%w: corpus is empty", domain.ErrInvalidInput)
	}
	return s.index.Rebuild(ctx, corpus)
}

// Watch syncs once per batch of corpus changes until ctx is cancelled.
// A failed sync is recorded in Status and watching continues.
func (s *SyncService) Watch(ctx context.Context) error {
	if s.watcher == nil {
		return fmt.Errorf("%w: no corpus watcher configured", domain.ErrInvalidInput)
	}

	var paths []string
	for _, p := range []string{s.paths.DocsDir, s.paths.QAFile} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: neither %s nor %s is set", domain.ErrInvalidInput, KeyDocsDir, KeyQAFile)
	}

	logger.Info("Watching %d corpus path(s) for changes", len(paths))
	return s.watcher.Watch(ctx, paths, func(ctx context.Context, changes []domain.CorpusChange) {
		logger.Info("Detected %d corpus change(s), rebuilding", len(changes))
		for _, c := range changes {
			logger.Debug("  %s %s", c.Type, c.Path)
		}
		// Sync logs and records its own failures.
		_, _ = s.Sync(ctx)
	})
}

// Status returns the state of the most recent sync.
func (s *SyncService) Status() driving.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *SyncService) setRunning(running bool) {
	s.mu.Lock()
	s.status.Running = running
	s.mu.Unlock()
}
