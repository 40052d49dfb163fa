package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

// mockAnswerService implements driving.AnswerService for testing.
type mockAnswerService struct {
	answer  *domain.Answer
	err     error
	queries []string
}

func (m *mockAnswerService) Ask(_ context.Context, query string) (*domain.Answer, error) {
	m.queries = append(m.queries, query)
	return m.answer, m.err
}

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	meta domain.IndexMeta
	err  error
}

func (m *mockIndexService) Startup(_ context.Context) error { return m.err }

func (m *mockIndexService) Rebuild(_ context.Context, _ domain.Corpus) (domain.IndexMeta, error) {
	return m.meta, m.err
}

func (m *mockIndexService) Info() (domain.IndexMeta, error) { return m.meta, m.err }

// mockSyncService implements driving.SyncService for testing.
type mockSyncService struct {
	meta     domain.IndexMeta
	err      error
	watchErr error
	syncs    int
	watched  bool
}

func (m *mockSyncService) LoadCorpus(_ context.Context) (domain.Corpus, error) {
	return domain.Corpus{}, m.err
}

func (m *mockSyncService) Sync(_ context.Context) (domain.IndexMeta, error) {
	m.syncs++
	return m.meta, m.err
}

func (m *mockSyncService) Watch(_ context.Context) error {
	m.watched = true
	return m.watchErr
}

func (m *mockSyncService) Status() driving.SyncStatus {
	return driving.SyncStatus{Syncs: m.syncs, LastMeta: m.meta}
}

// mockStatsService implements driving.StatsService for testing.
type mockStatsService struct {
	top        []domain.QueryCount
	unresolved []domain.UnresolvedQuery
	err        error
	limit      int
}

func (m *mockStatsService) TopQueries(_ context.Context, n int) ([]domain.QueryCount, error) {
	m.limit = n
	return m.top, m.err
}

func (m *mockStatsService) Unresolved(_ context.Context, limit int) ([]domain.UnresolvedQuery, error) {
	m.limit = limit
	return m.unresolved, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	getErr      error
	setErr      error
	validateErr error

	set      map[string]string
	provider domain.AIProvider
	model    string
	baseURL  string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error { return m.setErr }

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, baseURL string) error {
	m.provider, m.model, m.baseURL = provider, model, baseURL
	return m.setErr
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

var (
	_ driving.AnswerService   = (*mockAnswerService)(nil)
	_ driving.IndexService    = (*mockIndexService)(nil)
	_ driving.SyncService     = (*mockSyncService)(nil)
	_ driving.StatsService    = (*mockStatsService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
)

// resetFlags restores command flags, which cobra keeps between executions.
func resetFlags() {
	askJSON, askExplain = false, false
	indexDocsDir, indexQAFile, indexJSON = "", "", false
	watchDocsDir, watchQAFile, watchInitial = "", "", true
	statsLimit, statsJSON = 10, false
	chatPlain = false
	mcpHTTPAddr = ""
	homeFlag, ephemeralFlag, verboseFlag = "", false, false
}

// runCLI executes the root command with svc installed and returns the
// combined output.
func runCLI(t *testing.T, svc *Services, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	SetServices(svc)
	t.Cleanup(func() {
		SetServices(nil)
		SetLoader(nil)
		resetFlags()
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func indexedServices() *Services {
	return &Services{
		Answer: &mockAnswerService{},
		Index:  &mockIndexService{meta: domain.IndexMeta{Chunks: 12, QAPairs: 3}},
		Sync:   &mockSyncService{},
		Stats:  &mockStatsService{},
	}
}
