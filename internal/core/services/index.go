package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
	"github.com/custodia-labs/concierge/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// Embedding batch defaults.
const (
	DefaultEmbedBatchSize   = 32
	DefaultEmbedConcurrency = 4
)

// IndexService builds, persists and publishes index snapshots.
type IndexService struct {
	holder       *IndexHolder
	embedder     driven.EmbeddingService
	pipeline     driven.PostProcessorPipeline
	store        driven.SnapshotStore
	qaFactory    driven.VectorIndexFactory[domain.QAPair]
	chunkFactory driven.VectorIndexFactory[domain.Chunk]
	thresholds   domain.Thresholds

	batchSize   int
	concurrency int

	// rebuildMu serialises rebuilds; searches never take it.
	rebuildMu sync.Mutex
}

// NewIndexService creates an index service publishing into holder.
// The snapshot store is optional (can be nil) for ephemeral indices.
func NewIndexService(
	holder *IndexHolder,
	embedder driven.EmbeddingService,
	pipeline driven.PostProcessorPipeline,
	store driven.SnapshotStore,
	qaFactory driven.VectorIndexFactory[domain.QAPair],
	chunkFactory driven.VectorIndexFactory[domain.Chunk],
	thresholds domain.Thresholds,
) *IndexService {
	return &IndexService{
		holder:       holder,
		embedder:     embedder,
		pipeline:     pipeline,
		store:        store,
		qaFactory:    qaFactory,
		chunkFactory: chunkFactory,
		thresholds:   thresholds,
		batchSize:    DefaultEmbedBatchSize,
		concurrency:  DefaultEmbedConcurrency,
	}
}

// SetBatching overrides the embedding batch size and the number of
// batches embedded concurrently. Non-positive values are ignored.
func (s *IndexService) SetBatching(batchSize, concurrency int) {
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
}

// Build chunks and embeds corpus and returns an unpublished snapshot.
func (s *IndexService) Build(ctx context.Context, corpus domain.Corpus) (*Snapshot, error) {
	logger.Section("Index Build")
	start := time.Now()

	var chunks []domain.Chunk
	for i := range corpus.Documents {
		doc := corpus.Documents[i]
		docChunks, err := s.pipeline.Process(ctx, &doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Source, err)
		}
		chunks = append(chunks, docChunks...)
	}
	logger.Debug("Chunked %d documents into %d chunks", len(corpus.Documents), len(chunks))

	chunkTexts := make([]string, len(chunks))
	for i, c := range chunks {
		chunkTexts[i] = c.Text
	}
	chunkVecs, err := s.embedAll(ctx, chunkTexts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	questions := make([]string, len(corpus.QAPairs))
	for i, p := range corpus.QAPairs {
		questions[i] = p.Question
	}
	qaVecs, err := s.embedAll(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("embed questions: %w", err)
	}

	data := &driven.SnapshotData{
		Meta: domain.IndexMeta{
			EmbeddingModel: s.embedder.ModelName(),
			Dimensions:     s.embedder.Dimensions(),
			ChunkSize:      s.thresholds.ChunkSize,
			ChunkOverlap:   s.thresholds.ChunkOverlap,
			Documents:      len(corpus.Documents),
			Chunks:         len(chunks),
			QAPairs:        len(corpus.QAPairs),
			BuiltAt:        time.Now().UTC(),
		},
		QA:     make([]domain.IndexEntry[domain.QAPair], len(corpus.QAPairs)),
		Chunks: make([]domain.IndexEntry[domain.Chunk], len(chunks)),
	}
	for i, p := range corpus.QAPairs {
		data.QA[i] = domain.IndexEntry[domain.QAPair]{Vector: qaVecs[i], Payload: p}
	}
	for i, c := range chunks {
		data.Chunks[i] = domain.IndexEntry[domain.Chunk]{Vector: chunkVecs[i], Payload: c}
	}

	snap, err := s.fromData(data)
	if err != nil {
		return nil, err
	}
	logger.Info("Built index: %d chunks, %d Q&A pairs in %s",
		len(chunks), len(corpus.QAPairs), time.Since(start).Round(time.Millisecond))
	return snap, nil
}

// embedAll embeds texts in batches, running up to s.concurrency batches at once.
// The result is in input order.
func (s *IndexService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for lo := 0; lo < len(texts); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := s.embedder.EmbedBatch(gctx, texts[lo:hi])
			if err != nil {
				return fmt.Errorf("%w: batch %d-%d: %w", domain.ErrEmbedding, lo, hi, err)
			}
			if len(vecs) != hi-lo {
				return fmt.Errorf("%w: batch %d-%d returned %d vectors", domain.ErrEmbedding, lo, hi, len(vecs))
			}
			copy(out[lo:hi], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fromData builds both indices from persisted or freshly embedded entries.
func (s *IndexService) fromData(data *driven.SnapshotData) (*Snapshot, error) {
	qa, err := s.qaFactory(data.QA)
	if err != nil {
		return nil, fmt.Errorf("build Q&A index: %w", err)
	}
	chunks, err := s.chunkFactory(data.Chunks)
	if err != nil {
		return nil, fmt.Errorf("build document index: %w", err)
	}
	if qa.Len() > 0 && chunks.Len() > 0 && qa.Dimension() != chunks.Dimension() {
		return nil, fmt.Errorf("%w: Q&A index has %d dimensions, document index %d",
			domain.ErrDimensionMismatch, qa.Dimension(), chunks.Dimension())
	}
	return &Snapshot{Meta: data.Meta, QA: qa, Chunks: chunks}, nil
}

// Save persists snap through the snapshot store.
func (s *IndexService) Save(ctx context.Context, snap *Snapshot) error {
	if s.store == nil {
		return nil
	}
	data := &driven.SnapshotData{
		Meta:   snap.Meta,
		QA:     snap.QA.Entries(),
		Chunks: snap.Chunks.Entries(),
	}
	if err := s.store.SaveSnapshot(ctx, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot without publishing it.
// Returns ErrIndexUnavailable when nothing is stored or the stored
// snapshot was embedded with a different model.
func (s *IndexService) Load(ctx context.Context) (*Snapshot, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no snapshot store configured", domain.ErrIndexUnavailable)
	}

	data, err := s.store.LoadSnapshot(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no index has been built yet", domain.ErrIndexUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	if model := s.embedder.ModelName(); data.Meta.EmbeddingModel != model {
		return nil, fmt.Errorf("%w: index was built with %q but %q is configured; rebuild the index",
			domain.ErrIndexUnavailable, data.Meta.EmbeddingModel, model)
	}

	snap, err := s.fromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return snap, nil
}

// Startup loads the persisted snapshot and publishes it.
func (s *IndexService) Startup(ctx context.Context) error {
	snap, err := s.Load(ctx)
	if err != nil {
		return err
	}
	s.holder.Swap(snap)
	logger.Info("Loaded index: %d chunks, %d Q&A pairs (model %s)",
		snap.Meta.Chunks, snap.Meta.QAPairs, snap.Meta.EmbeddingModel)
	return nil
}

// Rebuild builds a snapshot off to the side, persists it and publishes it.
// On any failure the live snapshot is left untouched.
func (s *IndexService) Rebuild(ctx context.Context, corpus domain.Corpus) (domain.IndexMeta, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	snap, err := s.Build(ctx, corpus)
	if err != nil {
		return domain.IndexMeta{}, err
	}
	if err := s.Save(ctx, snap); err != nil {
		return domain.IndexMeta{}, err
	}
	s.holder.Swap(snap)
	return snap.Meta, nil
}

// Info describes the live snapshot.
func (s *IndexService) Info() (domain.IndexMeta, error) {
	snap := s.holder.Load()
	if snap == nil {
		return domain.IndexMeta{}, domain.ErrIndexUnavailable
	}
	return snap.Meta, nil
}
