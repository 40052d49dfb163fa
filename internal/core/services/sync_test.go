package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// mockCorpusLoader implements driven.CorpusLoader for testing.
type mockCorpusLoader struct {
	docs    []domain.Document
	pairs   []domain.QAPair
	docsErr error
	qaErr   error
	dirs    []string
}

func (m *mockCorpusLoader) LoadDocuments(_ context.Context, dir string) ([]domain.Document, error) {
	m.dirs = append(m.dirs, dir)
	return m.docs, m.docsErr
}

func (m *mockCorpusLoader) LoadQAPairs(_ context.Context, _ string) ([]domain.QAPair, error) {
	return m.pairs, m.qaErr
}

func newSyncFixture(t *testing.T, loader *mockCorpusLoader, paths domain.PathSettings) (*SyncService, *IndexHolder) {
	t.Helper()
	index, holder, _ := newIndexFixture(t, &mockSnapshotStore{})
	return NewSyncService(loader, index, paths), holder
}

func TestSyncService_Sync(t *testing.T) {
	corpus := testCorpus()
	loader := &mockCorpusLoader{docs: corpus.Documents, pairs: corpus.QAPairs}
	svc, holder := newSyncFixture(t, loader, domain.PathSettings{DocsDir: "docs", QAFile: "qa.csv"})

	meta, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, meta.Documents)
	assert.Equal(t, 2, meta.QAPairs)
	require.NotNil(t, holder.Load())
	assert.Equal(t, []string{"docs"}, loader.dirs)

	status := svc.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Syncs)
	assert.Empty(t, status.LastError)
	assert.Equal(t, meta, status.LastMeta)
	assert.False(t, status.LastSync.IsZero())
}

func TestSyncService_LoadCorpus_OnlyQA(t *testing.T) {
	loader := &mockCorpusLoader{pairs: testCorpus().QAPairs}
	svc, _ := newSyncFixture(t, loader, domain.PathSettings{QAFile: "qa.csv"})

	corpus, err := svc.LoadCorpus(context.Background())

	require.NoError(t, err)
	assert.Empty(t, corpus.Documents)
	assert.Len(t, corpus.QAPairs, 2)
	assert.Empty(t, loader.dirs, "documents are not loaded without a directory")
}

func TestSyncService_NoPaths(t *testing.T) {
	svc, _ := newSyncFixture(t, &mockCorpusLoader{}, domain.PathSettings{})

	_, err := svc.Sync(context.Background())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotEmpty(t, svc.Status().LastError)
}

func TestSyncService_EmptyCorpusKeepsLiveIndex(t *testing.T) {
	corpus := testCorpus()
	loader := &mockCorpusLoader{docs: corpus.Documents, pairs: corpus.QAPairs}
	svc, holder := newSyncFixture(t, loader, domain.PathSettings{DocsDir: "docs", QAFile: "qa.csv"})
	_, err := svc.Sync(context.Background())
	require.NoError(t, err)
	live := holder.Load()

	loader.docs, loader.pairs = nil, nil
	_, err = svc.Sync(context.Background())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Same(t, live, holder.Load())
	assert.Equal(t, 2, svc.Status().Syncs)
}

func TestSyncService_LoaderErrors(t *testing.T) {
	loader := &mockCorpusLoader{docsErr: errors.New("permission denied")}
	svc, _ := newSyncFixture(t, loader, domain.PathSettings{DocsDir: "docs"})

	_, err := svc.Sync(context.Background())
	assert.ErrorContains(t, err, "load documents: permission denied")

	loader.docsErr = nil
	loader.qaErr = errors.New("bad header")
	svc, _ = newSyncFixture(t, loader, domain.PathSettings{QAFile: "qa.csv"})

	_, err = svc.Sync(context.Background())
	assert.ErrorContains(t, err, "load Q&A pairs: bad header")
}

// fakeWatcher delivers the configured batches synchronously.
type fakeWatcher struct {
	batches [][]domain.CorpusChange
	paths   []string
	err     error
}

func (w *fakeWatcher) Watch(ctx context.Context, paths []string, onChange func(context.Context, []domain.CorpusChange)) error {
	w.paths = paths
	for _, b := range w.batches {
		onChange(ctx, b)
	}
	return w.err
}

func TestSyncService_Watch(t *testing.T) {
	corpus := testCorpus()
	loader := &mockCorpusLoader{docs: corpus.Documents, pairs: corpus.QAPairs}
	svc, holder := newSyncFixture(t, loader, domain.PathSettings{DocsDir: "docs", QAFile: "qa.csv"})

	watcher := &fakeWatcher{batches: [][]domain.CorpusChange{
		{{Type: domain.ChangeCreated, Path: "docs/new.md"}},
		{{Type: domain.ChangeDeleted, Path: "docs/old.md"}, {Type: domain.ChangeUpdated, Path: "qa.csv"}},
	}}
	svc.SetWatcher(watcher)

	require.NoError(t, svc.Watch(context.Background()))
	assert.Equal(t, []string{"docs", "qa.csv"}, watcher.paths)
	assert.Equal(t, 2, svc.Status().Syncs)
	assert.NotNil(t, holder.Load())
}

func TestSyncService_WatchKeepsGoingAfterFailedSync(t *testing.T) {
	loader := &mockCorpusLoader{docsErr: errors.New("disk gone")}
	svc, _ := newSyncFixture(t, loader, domain.PathSettings{DocsDir: "docs"})
	svc.SetWatcher(&fakeWatcher{batches: [][]domain.CorpusChange{
		{{Type: domain.ChangeUpdated, Path: "docs/a.md"}},
		{{Type: domain.ChangeUpdated, Path: "docs/b.md"}},
	}})

	require.NoError(t, svc.Watch(context.Background()))
	status := svc.Status()
	assert.Equal(t, 2, status.Syncs)
	assert.Contains(t, status.LastError, "disk gone")
}

func TestSyncService_WatchErrors(t *testing.T) {
	svc, _ := newSyncFixture(t, &mockCorpusLoader{}, domain.PathSettings{DocsDir: "docs"})
	assert.ErrorIs(t, svc.Watch(context.Background()), domain.ErrInvalidInput)

	svc, _ = newSyncFixture(t, &mockCorpusLoader{}, domain.PathSettings{})
	svc.SetWatcher(&fakeWatcher{})
	assert.ErrorIs(t, svc.Watch(context.Background()), domain.ErrInvalidInput)

	svc, _ = newSyncFixture(t, &mockCorpusLoader{}, domain.PathSettings{DocsDir: "docs"})
	svc.SetWatcher(&fakeWatcher{err: errors.New("too many open files")})
	assert.ErrorContains(t, svc.Watch(context.Background()), "too many open files")
}
