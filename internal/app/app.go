// Package app wires the concierge services from settings. It is the
// only package that knows every adapter.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/concierge/internal/adapters/driven/audit/async"
	"github.com/custodia-labs/concierge/internal/adapters/driven/audit/jsonl"
	"github.com/custodia-labs/concierge/internal/adapters/driven/audit/metrics"
	"github.com/custodia-labs/concierge/internal/adapters/driven/audit/multi"
	"github.com/custodia-labs/concierge/internal/adapters/driven/classifier/centroid"
	"github.com/custodia-labs/concierge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/concierge/internal/adapters/driven/corpus/filesystem"
	"github.com/custodia-labs/concierge/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/concierge/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/concierge/internal/adapters/driven/rules/pattern"
	"github.com/custodia-labs/concierge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/concierge/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/concierge/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/concierge/internal/config"
	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/core/services"
	"github.com/custodia-labs/concierge/internal/logger"
	"github.com/custodia-labs/concierge/internal/normalisers"
	"github.com/custodia-labs/concierge/internal/postprocessors"
)

// HomeDirName is the default concierge home under the user's home directory.
const HomeDirName = ".concierge"

// Options controls how the application is assembled.
type Options struct {
	// Home holds config.toml and the data directory. Empty uses
	// CONCIERGE_HOME, then ~/.concierge.
	Home string

	// Ephemeral keeps all state in memory. Settings are read from the
	// config file but changes are not written back.
	Ephemeral bool

	// SettingsOnly stops after the settings service is ready.
	SettingsOnly bool

	// DocsDir and QAFile override the configured corpus paths.
	DocsDir string
	QAFile  string

	// Registry receives the Prometheus collectors. Nil uses a private registry.
	Registry *prometheus.Registry
}

// App holds the wired services.
type App struct {
	Home     string
	Env      config.Env
	Config   domain.AppSettings
	Settings *services.SettingsService

	Answer  *services.AnswerService
	Index   *services.IndexService
	Sync    *services.SyncService
	Stats   *services.StatsService
	Metrics *metrics.Sink

	closers []io.Closer
}

// New reads settings and builds every service. The persisted index is
// loaded when present; use Ready to check before answering.
func New(ctx context.Context, opts Options) (*App, error) {
	env, err := config.Load(".env")
	if err != nil {
		return nil, err
	}

	home, err := resolveHome(opts.Home, env.Home)
	if err != nil {
		return nil, err
	}
	// The working directory wins over the home .env.
	if env, err = config.Load(filepath.Join(home, ".env")); err != nil {
		return nil, err
	}
	if env.Verbose {
		logger.SetVerbose(true)
	}

	a := &App{Home: home, Env: env}

	fileStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	var configStore driven.ConfigStore = fileStore
	if opts.Ephemeral || env.Ephemeral {
		configStore = memory.CopyConfigStore(fileStore)
	}
	a.Settings = services.NewSettingsService(configStore)
	if opts.SettingsOnly {
		return a, nil
	}

	settings, err := a.Settings.Get()
	if err != nil {
		return nil, err
	}
	if err := env.Apply(settings); err != nil {
		return nil, err
	}
	if opts.DocsDir != "" {
		settings.Paths.DocsDir = opts.DocsDir
	}
	if opts.QAFile != "" {
		settings.Paths.QAFile = opts.QAFile
	}
	a.Config = *settings

	if err := a.build(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config
	th := cfg.Thresholds

	embedder, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, embedder)

	var (
		snapshots  driven.SnapshotStore
		unresolved driven.UnresolvedStore
		stats      driven.StatsStore
	)
	if opts.Ephemeral || a.Env.Ephemeral {
		log := memory.NewQueryLog()
		snapshots, unresolved, stats = memory.NewSnapshotStore(), log, log
	} else {
		store, err := sqlite.NewStore(filepath.Join(a.Home, "data"))
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		a.closers = append(a.closers, store)
		snapshots, unresolved, stats = store.SnapshotStore(), store.UnresolvedStore(), store.StatsStore()
	}

	audit, err := a.auditSink(opts.Registry)
	if err != nil {
		return err
	}
	if a.Env.MetricsAddr != "" {
		if err := a.serveMetrics(a.Env.MetricsAddr); err != nil {
			return err
		}
	}

	classifier, err := newClassifier(ctx, embedder, cfg.Paths.LabelsFile)
	if err != nil {
		return err
	}
	rules, err := newRuleEngine(cfg.Paths.RulesFile)
	if err != nil {
		return err
	}

	pipeline, err := postprocessors.NewChunkingPipeline(th.ChunkSize, th.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunker: %w", err)
	}

	holder := services.NewIndexHolder()
	a.Index = services.NewIndexService(holder, embedder, pipeline, snapshots,
		flat.Factory[domain.QAPair](), flat.Factory[domain.Chunk](), th)

	a.Answer = services.NewAnswerService(classifier, th,
		services.NewRuleStrategy(rules),
		services.NewShortAnswerStrategy(services.NewShortAnswerRetriever(holder, embedder, th, audit)),
		services.NewDocumentStrategy(services.NewDocumentRetriever(holder, embedder, th, audit)),
	)
	if cfg.Guards.Validation || cfg.Guards.Scope {
		a.Answer.SetValidator(services.NewQueryValidator(cfg.Guards))
	}
	a.Answer.SetAuditSink(audit)
	a.Answer.SetUnresolvedStore(unresolved)
	a.Answer.SetStatsStore(stats)

	a.Stats = services.NewStatsService(stats, unresolved)

	loader := filesystem.NewLoader(normalisers.NewDefaultRegistry())
	a.Sync = services.NewSyncService(loader, a.Index, cfg.Paths)
	a.Sync.SetWatcher(filesystem.NewWatcher(filesystem.DefaultDebounce))

	if err := a.Index.Startup(ctx); err != nil {
		logger.Debug("No index loaded: %v", err)
	}
	return nil
}

// auditSink fans events out to Prometheus and, when configured, to a
// JSON lines file written off the query path.
func (a *App) auditSink(reg *prometheus.Registry) (driven.AuditSink, error) {
	a.Metrics = metrics.New(reg)
	if a.Config.Paths.AuditLog == "" {
		return a.Metrics, nil
	}

	logFile, err := jsonl.Open(a.Config.Paths.AuditLog)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	background := async.New(logFile, async.DefaultBuffer, async.WithOnDrop(a.Metrics.RecordDrop))
	// Closers run in reverse, so the queue drains before the file closes.
	a.closers = append(a.closers, logFile, background)
	return multi.New(a.Metrics, background), nil
}

// serveMetrics exposes /metrics on addr until the app is closed.
func (a *App) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped: %v", err)
		}
	}()
	logger.Info("Serving metrics on %s", ln.Addr())
	a.closers = append(a.closers, srv)
	return nil
}

// Ready reports whether an index is loaded.
func (a *App) Ready() error {
	if a.Index == nil {
		return domain.ErrIndexUnavailable
	}
	_, err := a.Index.Info()
	return err
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewEmbedder returns the embedding service for settings.
func NewEmbedder(s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch s.Provider {
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(s.Dimensions), nil
	case domain.AIProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, s.Provider)
	}
}

func newClassifier(ctx context.Context, embedder driven.EmbeddingService, labelsFile string) (*centroid.Classifier, error) {
	set := centroid.DefaultLabelSet()
	if labelsFile != "" {
		var err error
		if set, err = centroid.LoadLabelSet(labelsFile); err != nil {
			return nil, err
		}
	}
	c, err := centroid.New(ctx, embedder, set)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return c, nil
}

// newRuleEngine loads the rules file. Without one the engine never matches
// and every deterministic query falls through to retrieval.
func newRuleEngine(rulesFile string) (*pattern.Engine, error) {
	if rulesFile == "" {
		return pattern.New(pattern.RuleSet{})
	}
	return pattern.LoadFile(rulesFile)
}

func resolveHome(flag, env string) (string, error) {
	switch {
	case flag != "":
		return flag, nil
	case env != "":
		return env, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(dir, HomeDirName), nil
}
