package domain

import (
	"fmt"
	"strings"
	"time"
)

// AIProvider identifies an embedding backend.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderHashing is the built-in feature-hashing embedder (no network).
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama:
		return true
	default:
		return false
	}
}

// IsLocal returns true if this provider needs no running service.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (built-in, offline)"
	case AIProviderOllama:
		return "Ollama (local service)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderHashing, AIProviderOllama}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name (Ollama only).
	Model string

	// BaseURL is the API endpoint (Ollama only).
	BaseURL string

	// Dimensions is the vector size for the hashing embedder.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider == AIProviderHashing && e.Dimensions <= 0 {
		return false
	}
	return true
}

// Thresholds is the single immutable configuration shared by the router
// and both retrievers. It is passed explicitly at construction time.
type Thresholds struct {
	// HighConfidence is the classifier confidence above which a specialised
	// strategy is trusted without a forced fallback.
	HighConfidence float64

	// MidConfidence is the classifier confidence below which only document
	// retrieval is used.
	MidConfidence float64

	// MinSimilarity is the short-answer similarity below which the match is rejected.
	MinSimilarity float64

	// AcceptThreshold is the short-answer similarity at which the answer is final.
	AcceptThreshold float64

	// MinConfidenceFloor is the document retrieval confidence below which
	// the retrieval is rejected.
	MinConfidenceFloor float64

	// MaxDistanceCeiling rejects document retrievals whose best L2 distance
	// exceeds it. Zero disables the ceiling.
	MaxDistanceCeiling float64

	// TopKShortAnswer is the number of Q&A neighbours to fetch.
	TopKShortAnswer int

	// TopKDocuments is the number of chunks to fetch.
	TopKDocuments int

	// ContextCharBudget bounds the assembled context window in characters.
	ContextCharBudget int

	// MaxAnswerSentences bounds the extracted answer.
	MaxAnswerSentences int

	// ChunkSize is the chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int

	// EmbedTimeout bounds a single embedding call.
	EmbedTimeout time.Duration

	// ClassifyTimeout bounds a single classifier call.
	ClassifyTimeout time.Duration

	// DeterministicLabels are answered by the rule engine.
	DeterministicLabels []string

	// SimilarityLabels are answered by the short-answer retriever.
	SimilarityLabels []string
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighConfidence:      0.75,
		MidConfidence:       0.45,
		MinSimilarity:       0.45,
		AcceptThreshold:     0.65,
		MinConfidenceFloor:  0.5,
		MaxDistanceCeiling:  1.5,
		TopKShortAnswer:     3,
		TopKDocuments:       5,
		ContextCharBudget:   2500,
		MaxAnswerSentences:  3,
		ChunkSize:           400,
		ChunkOverlap:        50,
		EmbedTimeout:        10 * time.Second,
		ClassifyTimeout:     10 * time.Second,
		DeterministicLabels: []string{"admissions", "financial"},
		SimilarityLabels:    []string{"academic", "student_services", "campus_life"},
	}
}

// Validate checks the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	var problems []string

	inUnit := func(name string, v float64) {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s=%v outside [0,1]", name, v))
		}
	}
	inUnit("high_confidence", t.HighConfidence)
	inUnit("mid_confidence", t.MidConfidence)
	inUnit("min_similarity", t.MinSimilarity)
	inUnit("accept_threshold", t.AcceptThreshold)
	inUnit("min_confidence_floor", t.MinConfidenceFloor)

	if t.MidConfidence > t.HighConfidence {
		problems = append(problems, "mid_confidence must not exceed high_confidence")
	}
	if t.MinSimilarity > t.AcceptThreshold {
		problems = append(problems, "min_similarity must not exceed accept_threshold")
	}
	if t.MaxDistanceCeiling < 0 {
		problems = append(problems, "max_distance_ceiling must not be negative")
	}
	if t.TopKShortAnswer <= 0 || t.TopKDocuments <= 0 {
		problems = append(problems, "top_k values must be positive")
	}
	if t.ContextCharBudget <= 0 {
		problems = append(problems, "context_char_budget must be positive")
	}
	if t.MaxAnswerSentences <= 0 {
		problems = append(problems, "max_answer_sentences must be positive")
	}
	if t.ChunkSize <= 0 || t.ChunkOverlap < 0 || t.ChunkOverlap >= t.ChunkSize {
		problems = append(problems, "chunking requires 0 <= overlap < chunk_size")
	}
	for _, label := range t.DeterministicLabels {
		if t.IsSimilarityLabel(label) {
			problems = append(problems, fmt.Sprintf("label %q is in both label groups", label))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// IsDeterministicLabel reports whether label belongs to the rule group.
func (t Thresholds) IsDeterministicLabel(label string) bool {
	return containsLabel(t.DeterministicLabels, label)
}

// IsSimilarityLabel reports whether label belongs to the short-answer group.
func (t Thresholds) IsSimilarityLabel(label string) bool {
	return containsLabel(t.SimilarityLabels, label)
}

func containsLabel(group []string, label string) bool {
	label = NormaliseLabel(label)
	for _, l := range group {
		if NormaliseLabel(l) == label {
			return true
		}
	}
	return false
}

// NormaliseLabel lowercases a label, trims it, and folds spaces and
// dashes to underscores so "Student Services" matches "student_services".
func NormaliseLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, label)
}

// GuardSettings toggles the pre-routing query checks.
type GuardSettings struct {
	// Validation enables the safety and format checks.
	Validation bool

	// Scope enables the out-of-domain check.
	Scope bool
}

// PathSettings locates the corpus and the persisted state.
type PathSettings struct {
	// DocsDir holds documents for the document index.
	DocsDir string

	// QAFile is the curated Q&A CSV.
	QAFile string

	// RulesFile is the rule engine pattern file.
	RulesFile string

	// LabelsFile holds labelled example phrases for the classifier.
	LabelsFile string

	// AuditLog is the JSON lines audit file. Empty disables file auditing.
	AuditLog string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Thresholds Thresholds
	Embedding  EmbeddingSettings
	Guards     GuardSettings
	Paths      PathSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The hashing embedder is used until a service is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Thresholds: DefaultThresholds(),
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Dimensions: 512,
		},
		Guards: GuardSettings{
			Validation: true,
			Scope:      true,
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-bow",
		AIProviderOllama:  "nomic-embed-text",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
	}
}
