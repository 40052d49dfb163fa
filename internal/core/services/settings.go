package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyHighConfidence     = "thresholds.high_confidence"
	KeyMidConfidence      = "thresholds.mid_confidence"
	KeyMinSimilarity      = "thresholds.min_similarity"
	KeyAcceptThreshold    = "thresholds.accept_threshold"
	KeyMinConfidenceFloor = "thresholds.min_confidence_floor"
	KeyMaxDistanceCeiling = "thresholds.max_distance_ceiling"
	KeyTopKShortAnswer    = "retrieval.top_k_short_answer"
	KeyTopKDocuments      = "retrieval.top_k_documents"
	KeyContextCharBudget  = "retrieval.context_char_budget"
	KeyMaxAnswerSentences = "retrieval.max_answer_sentences"
	KeyChunkSize          = "chunking.chunk_size"
	KeyChunkOverlap       = "chunking.overlap"
	KeyEmbedTimeout       = "timeouts.embed"
	KeyClassifyTimeout    = "timeouts.classify"
	KeyDeterministicLabel = "routing.deterministic_labels"
	KeySimilarityLabels   = "routing.similarity_labels"
	KeyEmbedProvider      = "embedding.provider"
	KeyEmbedModel         = "embedding.model"
	KeyEmbedBaseURL       = "embedding.base_url"
	KeyEmbedDimensions    = "embedding.dimensions"
	KeyGuardValidation    = "guards.validation"
	KeyGuardScope         = "guards.scope"
	KeyDocsDir            = "paths.docs_dir"
	KeyQAFile             = "paths.qa_file"
	KeyRulesFile          = "paths.rules_file"
	KeyLabelsFile         = "paths.labels_file"
	KeyAuditLog           = "paths.audit_log"
)

// settingField binds a config key to a field of AppSettings.
type settingField struct {
	read  func(s *SettingsService, out *domain.AppSettings)
	write func(out *domain.AppSettings, raw string) (any, error)
	value func(in *domain.AppSettings) any
}

// fieldBuilder binds a field accessor to its config key.
type fieldBuilder func(key string) settingField

// settingFields lists every key the service understands.
var settingFields = func() map[string]settingField {
	fields := make(map[string]settingField, len(settingBuilders))
	for key, build := range settingBuilders {
		fields[key] = build(key)
	}
	return fields
}()

var settingBuilders = map[string]fieldBuilder{
	KeyHighConfidence:     floatField(func(a *domain.AppSettings) *float64 { return &a.Thresholds.HighConfidence }),
	KeyMidConfidence:      floatField(func(a *domain.AppSettings) *float64 { return &a.Thresholds.MidConfidence }),
	KeyMinSimilarity:      floatField(func(a *domain.AppSettings) *float64 { return &a.Thresholds.MinSimilarity }),
	KeyAcceptThreshold:    floatField(func(a *domain.AppSettings) *float64 { return &a.Thresholds.AcceptThreshold }),
	KeyMinConfidenceFloor: floatField(func(a *domain.AppSettings) *float64 { return &a.Thresholds.MinConfidenceFloor }),
	KeyMaxDistanceCeiling: floatField(func(a *domain.AppSettings) *float64 { return &a.Thresholds.MaxDistanceCeiling }),
	KeyTopKShortAnswer:    intField(func(a *domain.AppSettings) *int { return &a.Thresholds.TopKShortAnswer }),
	KeyTopKDocuments:      intField(func(a *domain.AppSettings) *int { return &a.Thresholds.TopKDocuments }),
	KeyContextCharBudget:  intField(func(a *domain.AppSettings) *int { return &a.Thresholds.ContextCharBudget }),
	KeyMaxAnswerSentences: intField(func(a *domain.AppSettings) *int { return &a.Thresholds.MaxAnswerSentences }),
	KeyChunkSize:          intField(func(a *domain.AppSettings) *int { return &a.Thresholds.ChunkSize }),
	KeyChunkOverlap:       intField(func(a *domain.AppSettings) *int { return &a.Thresholds.ChunkOverlap }),
	KeyEmbedTimeout:       durationField(func(a *domain.AppSettings) *time.Duration { return &a.Thresholds.EmbedTimeout }),
	KeyClassifyTimeout:    durationField(func(a *domain.AppSettings) *time.Duration { return &a.Thresholds.ClassifyTimeout }),
	KeyDeterministicLabel: sliceField(func(a *domain.AppSettings) *[]string { return &a.Thresholds.DeterministicLabels }),
	KeySimilarityLabels:   sliceField(func(a *domain.AppSettings) *[]string { return &a.Thresholds.SimilarityLabels }),
	KeyEmbedProvider:      providerField,
	KeyEmbedModel:         stringField(func(a *domain.AppSettings) *string { return &a.Embedding.Model }),
	KeyEmbedBaseURL:       stringField(func(a *domain.AppSettings) *string { return &a.Embedding.BaseURL }),
	KeyEmbedDimensions:    intField(func(a *domain.AppSettings) *int { return &a.Embedding.Dimensions }),
	KeyGuardValidation:    boolField(func(a *domain.AppSettings) *bool { return &a.Guards.Validation }),
	KeyGuardScope:         boolField(func(a *domain.AppSettings) *bool { return &a.Guards.Scope }),
	KeyDocsDir:            stringField(func(a *domain.AppSettings) *string { return &a.Paths.DocsDir }),
	KeyQAFile:             stringField(func(a *domain.AppSettings) *string { return &a.Paths.QAFile }),
	KeyRulesFile:          stringField(func(a *domain.AppSettings) *string { return &a.Paths.RulesFile }),
	KeyLabelsFile:         stringField(func(a *domain.AppSettings) *string { return &a.Paths.LabelsFile }),
	KeyAuditLog:           stringField(func(a *domain.AppSettings) *string { return &a.Paths.AuditLog }),
}

// SettingKeys returns every supported config key.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Keys that are missing or
// hold invalid values keep their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	for key, f := range settingFields {
		if _, ok := s.configStore.Get(key); ok {
			f.read(s, &settings)
		}
	}
	return &settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Thresholds.Validate(); err != nil {
		return err
	}
	for key, f := range settingFields {
		if err := s.configStore.Set(key, f.value(settings)); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set parses value for key, checks the resulting settings are valid and
// persists the single key.
func (s *SettingsService) Set(key, value string) error {
	f, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	typed, err := f.write(settings, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := settings.Thresholds.Validate(); err != nil {
		return err
	}
	return s.configStore.Set(key, typed)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, baseURL string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.Model = model

	if provider == domain.AIProviderOllama {
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if d, ok := domain.EmbeddingDimensions()[model]; ok {
			settings.Embedding.Dimensions = d
		}
	}
	settings.Embedding.BaseURL = baseURL

	return s.Save(settings)
}

// Validate checks the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Thresholds.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured", domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Field builders.

func floatField(ptr func(*domain.AppSettings) *float64) fieldBuilder {
	return func(key string) settingField {
		return settingField{
			read: func(s *SettingsService, out *domain.AppSettings) {
				*ptr(out) = s.configStore.GetFloat(key)
			},
			write: func(out *domain.AppSettings, raw string) (any, error) {
				v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
				if err != nil {
					return nil, err
				}
				*ptr(out) = v
				return v, nil
			},
			value: func(in *domain.AppSettings) any { return *ptr(in) },
		}
	}
}

func intField(ptr func(*domain.AppSettings) *int) fieldBuilder {
	return func(key string) settingField {
		return settingField{
			read: func(s *SettingsService, out *domain.AppSettings) {
				if v := s.configStore.GetInt(key); v != 0 {
					*ptr(out) = v
				}
			},
			write: func(out *domain.AppSettings, raw string) (any, error) {
				v, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil {
					return nil, err
				}
				*ptr(out) = v
				return v, nil
			},
			value: func(in *domain.AppSettings) any { return *ptr(in) },
		}
	}
}

// durationField stores durations as strings such as "10s".
func durationField(ptr func(*domain.AppSettings) *time.Duration) fieldBuilder {
	return func(key string) settingField {
		return settingField{
			read: func(s *SettingsService, out *domain.AppSettings) {
				if d, err := time.ParseDuration(s.configStore.GetString(key)); err == nil && d > 0 {
					*ptr(out) = d
				}
			},
			write: func(out *domain.AppSettings, raw string) (any, error) {
				d, err := time.ParseDuration(strings.TrimSpace(raw))
				if err != nil {
					return nil, err
				}
				if d <= 0 {
					return nil, fmt.Errorf("duration must be positive")
				}
				*ptr(out) = d
				return d.String(), nil
			},
			value: func(in *domain.AppSettings) any { return ptr(in).String() },
		}
	}
}

// sliceField accepts a comma separated list.
func sliceField(ptr func(*domain.AppSettings) *[]string) fieldBuilder {
	return func(key string) settingField {
		return settingField{
			read: func(s *SettingsService, out *domain.AppSettings) {
				if v := s.configStore.GetStringSlice(key); v != nil {
					*ptr(out) = v
				}
			},
			write: func(out *domain.AppSettings, raw string) (any, error) {
				var items []string
				for _, part := range strings.Split(raw, ",") {
					if part = strings.TrimSpace(part); part != "" {
						items = append(items, part)
					}
				}
				*ptr(out) = items
				return items, nil
			},
			value: func(in *domain.AppSettings) any { return *ptr(in) },
		}
	}
}

func stringField(ptr func(*domain.AppSettings) *string) fieldBuilder {
	return func(key string) settingField {
		return settingField{
			read: func(s *SettingsService, out *domain.AppSettings) {
				*ptr(out) = s.configStore.GetString(key)
			},
			write: func(out *domain.AppSettings, raw string) (any, error) {
				*ptr(out) = strings.TrimSpace(raw)
				return *ptr(out), nil
			},
			value: func(in *domain.AppSettings) any { return *ptr(in) },
		}
	}
}

func boolField(ptr func(*domain.AppSettings) *bool) fieldBuilder {
	return func(key string) settingField {
		return settingField{
			read: func(s *SettingsService, out *domain.AppSettings) {
				*ptr(out) = s.configStore.GetBool(key)
			},
			write: func(out *domain.AppSettings, raw string) (any, error) {
				v, err := strconv.ParseBool(strings.TrimSpace(raw))
				if err != nil {
					return nil, err
				}
				*ptr(out) = v
				return v, nil
			},
			value: func(in *domain.AppSettings) any { return *ptr(in) },
		}
	}
}

func providerField(key string) settingField {
	return settingField{
		read: func(s *SettingsService, out *domain.AppSettings) {
			if p := domain.AIProvider(s.configStore.GetString(key)); p.IsValid() {
				out.Embedding.Provider = p
			}
		},
		write: func(out *domain.AppSettings, raw string) (any, error) {
			p := domain.AIProvider(strings.TrimSpace(raw))
			if !p.IsValid() {
				return nil, fmt.Errorf("unknown provider %q", raw)
			}
			out.Embedding.Provider = p
			return p.String(), nil
		},
		value: func(in *domain.AppSettings) any { return in.Embedding.Provider.String() },
	}
}
