package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Corpus is the raw material an index build consumes.
type Corpus struct {
	Documents []Document
	QAPairs   []QAPair
}

// IsEmpty returns true when there is nothing to index.
func (c Corpus) IsEmpty() bool {
	return len(c.Documents) == 0 && len(c.QAPairs) == 0
}

// IndexMeta describes a built snapshot.
type IndexMeta struct {
	// EmbeddingModel is the model that produced every vector in the snapshot.
	EmbeddingModel string `json:"embedding_model"`

	// Dimensions is the vector size shared by both indices.
	Dimensions int `json:"dimensions"`

	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`

	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	QAPairs   int `json:"qa_pairs"`

	BuiltAt time.Time `json:"built_at"`
}

// QueryCount is a query text with the number of times it was asked.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// UnresolvedQuery is a query no strategy could answer with confidence.
// Repeated queries are folded into one record.
type UnresolvedQuery struct {
	Query   string `json:"query"`
	QueryID string `json:"query_id"`
	Reason  string `json:"reason"`

	// Label is the classifier's top label, empty when classification failed.
	Label string `json:"label,omitempty"`

	// ShortAnswerSimilarity is the best curated-answer similarity seen.
	ShortAnswerSimilarity float64 `json:"short_answer_similarity"`

	// RetrievalConfidence is the document retrieval confidence seen.
	RetrievalConfidence float64 `json:"retrieval_confidence"`

	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// DefaultPopularQueries seeds the popular list before any query is recorded.
func DefaultPopularQueries() []string {
	return []string{
		"Is hostel facility available?",
		"What is the admission process?",
		"What is the tuition fee?",
		"Where is the library?",
	}
}

// minStatQueryLen is the shortest query counted in usage statistics.
const minStatQueryLen = 3

// StatQueryKey returns the form a query is counted under: trimmed, with
// the first letter upper-cased so "fee?" and "Fee?" share a counter.
// Queries shorter than three characters are not counted.
func StatQueryKey(query string) (string, bool) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < minStatQueryLen {
		return "", false
	}
	r, size := utf8.DecodeRuneInString(q)
	return string(unicode.ToUpper(r)) + q[size:], true
}
