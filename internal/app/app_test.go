package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

func writeCorpus(t *testing.T) (docsDir, qaFile string) {
	t.Helper()
	root := t.TempDir()
	docsDir = filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "hostel.md"), []byte(
		"# Hostel\n\nThe hostel has separate blocks for boys and girls. "+
			"Rooms are shared by two students. The mess serves breakfast, lunch and dinner."), 0o644))
	qaFile = filepath.Join(root, "qa.csv")
	require.NoError(t, os.WriteFile(qaFile, []byte(
		"Question,Answers\n"+
			"Where is the library?,The library is in Block B.\n"+
			"What are the library hours?,The library is open from 8am to 8pm.\n"), 0o644))
	return docsDir, qaFile
}

func TestNew_SettingsOnly(t *testing.T) {
	home := t.TempDir()

	a, err := New(context.Background(), Options{Home: home, SettingsOnly: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, home, a.Home)
	assert.NotNil(t, a.Settings)
	assert.Nil(t, a.Answer)
	assert.ErrorIs(t, a.Ready(), domain.ErrIndexUnavailable)
}

func TestNew_SyncAndAsk(t *testing.T) {
	docsDir, qaFile := writeCorpus(t)
	home := t.TempDir()
	auditLog := filepath.Join(home, "audit.jsonl")

	a, err := New(context.Background(), Options{Home: home, SettingsOnly: true})
	require.NoError(t, err)
	require.NoError(t, a.Settings.Set("paths.audit_log", auditLog))
	require.NoError(t, a.Close())

	a, err = New(context.Background(), Options{
		Home:     home,
		DocsDir:  docsDir,
		QAFile:   qaFile,
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, a.Ready(), domain.ErrIndexUnavailable)

	meta, err := a.Sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Documents)
	assert.Equal(t, 2, meta.QAPairs)
	assert.Equal(t, "hashing-bow", meta.EmbeddingModel)
	require.NoError(t, a.Ready())

	ans, err := a.Answer.Ask(context.Background(), "Where is the library?")
	require.NoError(t, err)
	assert.NotEmpty(t, ans.QueryID)
	assert.True(t, ans.FinalState().IsTerminal())
	require.NoError(t, a.Close())

	info, err := os.Stat(auditLog)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// A fresh process picks the persisted index up at startup.
	a, err = New(context.Background(), Options{Home: home, Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Ready())

	top, err := a.Stats.TopQueries(context.Background(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, "Where is the library?", top[0].Query)
}

func TestNew_Ephemeral(t *testing.T) {
	docsDir, _ := writeCorpus(t)
	home := t.TempDir()

	a, err := New(context.Background(), Options{Home: home, Ephemeral: true, DocsDir: docsDir})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Sync.Sync(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Ready())

	_, err = os.Stat(filepath.Join(home, "data"))
	assert.True(t, os.IsNotExist(err))
}

func TestNew_EphemeralSettingsStayInMemory(t *testing.T) {
	home := t.TempDir()

	a, err := New(context.Background(), Options{Home: home, SettingsOnly: true})
	require.NoError(t, err)
	require.NoError(t, a.Settings.Set("retrieval.top_k_documents", "4"))
	require.NoError(t, a.Close())

	a, err = New(context.Background(), Options{Home: home, SettingsOnly: true, Ephemeral: true})
	require.NoError(t, err)
	settings, err := a.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 4, settings.Thresholds.TopKDocuments, "ephemeral runs start from the saved settings")
	require.NoError(t, a.Settings.Set("retrieval.top_k_documents", "9"))
	require.NoError(t, a.Close())

	a, err = New(context.Background(), Options{Home: home, SettingsOnly: true})
	require.NoError(t, err)
	defer a.Close()
	settings, err = a.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 4, settings.Thresholds.TopKDocuments)
}

func TestNew_BadRulesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CONCIERGE_RULES_FILE", filepath.Join(home, "missing.toml"))

	_, err := New(context.Background(), Options{Home: home, Ephemeral: true})
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(domain.EmbeddingSettings{Provider: domain.AIProviderHashing, Dimensions: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimensions())

	e, err = NewEmbedder(domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm", Dimensions: 384})
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", e.ModelName())
	require.NoError(t, e.Close())

	_, err = NewEmbedder(domain.EmbeddingSettings{Provider: "openai"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestResolveHome(t *testing.T) {
	got, err := resolveHome("/flag", "/env")
	require.NoError(t, err)
	assert.Equal(t, "/flag", got)

	got, err = resolveHome("", "/env")
	require.NoError(t, err)
	assert.Equal(t, "/env", got)

	got, err = resolveHome("", "")
	require.NoError(t, err)
	assert.Equal(t, HomeDirName, filepath.Base(got))
}

func TestNew_ServesMetrics(t *testing.T) {
	t.Setenv("CONCIERGE_METRICS_ADDR", "127.0.0.1:0")

	a, err := New(context.Background(), Options{
		Home:      t.TempDir(),
		Ephemeral: true,
		Registry:  prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	require.NotEmpty(t, a.closers)
	srv, ok := a.closers[len(a.closers)-1].(*http.Server)
	require.True(t, ok)
	assert.NotNil(t, srv.Handler)
	assert.NoError(t, a.Close())
}
