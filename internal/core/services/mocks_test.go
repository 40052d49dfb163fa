package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Texts found in vectors get their vector; others get fallback.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	dims     int
	model    string
	embedErr error
	batchErr error
	batches  int
	embedded []string
}

func newMockEmbedder(dims int) *mockEmbeddingService {
	return &mockEmbeddingService{
		vectors:  make(map[string][]float32),
		fallback: make([]float32, dims),
		dims:     dims,
		model:    "mock-embed",
	}
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.fallback
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.mu.Lock()
	m.embedded = append(m.embedded, text)
	m.mu.Unlock()
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return m.dims
}

func (m *mockEmbeddingService) ModelName() string {
	return m.model
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockClassifier implements driven.Classifier for testing.
type mockClassifier struct {
	result domain.ClassificationResult
	err    error
	calls  atomic.Int32
}

func (m *mockClassifier) Classify(_ context.Context, _ string) (domain.ClassificationResult, error) {
	m.calls.Add(1)
	return m.result, m.err
}

func (m *mockClassifier) Labels() []string {
	labels := make([]string, 0, len(m.result.Distribution))
	for l := range m.result.Distribution {
		labels = append(labels, l)
	}
	return labels
}

// classifiedAs builds a valid distribution whose top label is label at conf.
// The remainder is spread over four filler labels, so conf must exceed 0.2.
func classifiedAs(label string, conf float64) *mockClassifier {
	dist := map[string]float64{label: conf}
	for _, other := range []string{"filler_a", "filler_b", "filler_c", "filler_d"} {
		dist[other] = (1 - conf) / 4
	}
	return &mockClassifier{result: domain.NewClassificationResult(dist)}
}

// mockRuleEngine implements driven.RuleEngine for testing.
type mockRuleEngine struct {
	answers map[string]string
	err     error
}

func (m *mockRuleEngine) Match(_ context.Context, text string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	a, ok := m.answers[text]
	return a, ok, nil
}

// mockAuditSink records every event.
type mockAuditSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (m *mockAuditSink) Emit(_ context.Context, e domain.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *mockAuditSink) byStage(stage domain.AuditStage) []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range m.events {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// mockQueryLog implements driven.UnresolvedStore and driven.StatsStore.
type mockQueryLog struct {
	mu         sync.Mutex
	unresolved []domain.UnresolvedQuery
	counts     map[string]int
	top        []domain.QueryCount
	err        error
}

func newMockQueryLog() *mockQueryLog {
	return &mockQueryLog{counts: make(map[string]int)}
}

func (m *mockQueryLog) RecordUnresolved(_ context.Context, q domain.UnresolvedQuery) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unresolved = append(m.unresolved, q)
	return nil
}

func (m *mockQueryLog) ListUnresolved(_ context.Context, limit int) ([]domain.UnresolvedQuery, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && limit < len(m.unresolved) {
		return m.unresolved[:limit], nil
	}
	return m.unresolved, nil
}

func (m *mockQueryLog) IncrementQuery(_ context.Context, query string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[query]++
	return nil
}

func (m *mockQueryLog) TopQueries(_ context.Context, n int) ([]domain.QueryCount, error) {
	if m.err != nil {
		return nil, m.err
	}
	if n < len(m.top) {
		return m.top[:n], nil
	}
	return m.top, nil
}

// mockSnapshotStore implements driven.SnapshotStore in memory.
type mockSnapshotStore struct {
	data    *driven.SnapshotData
	saveErr error
	loadErr error
	saves   int
}

func (m *mockSnapshotStore) SaveSnapshot(_ context.Context, data *driven.SnapshotData) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = data
	return nil
}

func (m *mockSnapshotStore) LoadSnapshot(_ context.Context) (*driven.SnapshotData, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return nil, domain.ErrNotFound
	}
	return m.data, nil
}

// --- Helpers ---

// vec2 returns a two dimensional vector.
func vec2(x, y float32) []float32 {
	return []float32{x, y}
}

// newTestHolder publishes a snapshot built from the given entries.
func newTestHolder(
	t *testing.T,
	qa []domain.IndexEntry[domain.QAPair],
	chunks []domain.IndexEntry[domain.Chunk],
) *IndexHolder {
	t.Helper()
	qaIdx, err := flat.Build(qa)
	require.NoError(t, err)
	chunkIdx, err := flat.Build(chunks)
	require.NoError(t, err)

	h := NewIndexHolder()
	h.Swap(&Snapshot{QA: qaIdx, Chunks: chunkIdx})
	return h
}

// testThresholds returns defaults with short timeouts.
func testThresholds() domain.Thresholds {
	th := domain.DefaultThresholds()
	th.EmbedTimeout = 0
	th.ClassifyTimeout = 0
	return th
}
