// Package config reads CONCIERGE_* environment overrides. Values from a
// .env file are loaded first and never replace variables already set in
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// Prefix is prepended to every variable name.
const Prefix = "CONCIERGE_"

// Env holds environment overrides. Zero and nil fields leave the stored
// settings untouched.
type Env struct {
	Home        string `env:"HOME"`
	Verbose     bool   `env:"VERBOSE"`
	Ephemeral   bool   `env:"EPHEMERAL"`
	MetricsAddr string `env:"METRICS_ADDR"`

	Embedding EmbeddingEnv `envPrefix:"EMBEDDING_"`
	Paths     PathsEnv

	HighConfidence     *float64 `env:"HIGH_CONFIDENCE"`
	MidConfidence      *float64 `env:"MID_CONFIDENCE"`
	MinSimilarity      *float64 `env:"MIN_SIMILARITY"`
	AcceptThreshold    *float64 `env:"ACCEPT_THRESHOLD"`
	MinConfidenceFloor *float64 `env:"MIN_CONFIDENCE_FLOOR"`
}

// EmbeddingEnv overrides the embedding provider.
type EmbeddingEnv struct {
	Provider   string `env:"PROVIDER"`
	Model      string `env:"MODEL"`
	BaseURL    string `env:"BASE_URL"`
	Dimensions int    `env:"DIMENSIONS"`
}

// PathsEnv overrides corpus and state locations.
type PathsEnv struct {
	DocsDir    string `env:"DOCS_DIR"`
	QAFile     string `env:"QA_FILE"`
	RulesFile  string `env:"RULES_FILE"`
	LabelsFile string `env:"LABELS_FILE"`
	AuditLog   string `env:"AUDIT_LOG"`
}

// Load reads the given .env files, skipping missing ones, then parses
// the environment.
func Load(dotenvFiles ...string) (Env, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse reads CONCIERGE_* variables from the process environment.
func Parse() (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Prefix: Prefix}); err != nil {
		return Env{}, fmt.Errorf("%w: environment: %w", domain.ErrInvalidInput, err)
	}
	return e, nil
}

// Apply writes the overrides into settings and validates the result.
func (e Env) Apply(settings *domain.AppSettings) error {
	if e.Embedding.Provider != "" {
		p := domain.AIProvider(e.Embedding.Provider)
		if !p.IsValid() {
			return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, p)
		}
		settings.Embedding.Provider = p
	}
	setString(&settings.Embedding.Model, e.Embedding.Model)
	setString(&settings.Embedding.BaseURL, e.Embedding.BaseURL)
	if e.Embedding.Dimensions > 0 {
		settings.Embedding.Dimensions = e.Embedding.Dimensions
	}

	setString(&settings.Paths.DocsDir, e.Paths.DocsDir)
	setString(&settings.Paths.QAFile, e.Paths.QAFile)
	setString(&settings.Paths.RulesFile, e.Paths.RulesFile)
	setString(&settings.Paths.LabelsFile, e.Paths.LabelsFile)
	setString(&settings.Paths.AuditLog, e.Paths.AuditLog)

	th := &settings.Thresholds
	setFloat(&th.HighConfidence, e.HighConfidence)
	setFloat(&th.MidConfidence, e.MidConfidence)
	setFloat(&th.MinSimilarity, e.MinSimilarity)
	setFloat(&th.AcceptThreshold, e.AcceptThreshold)
	setFloat(&th.MinConfidenceFloor, e.MinConfidenceFloor)

	return th.Validate()
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
