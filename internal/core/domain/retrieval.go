package domain

// ScoredChunk is a chunk returned by the document index with its distance.
type ScoredChunk struct {
	Chunk      Chunk   `json:"chunk"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// RetrievalResult is the outcome of a document retrieval.
// Accepted is true iff Confidence >= the configured confidence floor
// and the best distance is within the configured ceiling.
type RetrievalResult struct {
	// Chunks are ordered by ascending distance (descending relevance).
	Chunks []ScoredChunk `json:"chunks"`

	// Confidence is derived from the single best distance.
	Confidence float64 `json:"confidence"`

	// Accepted is false for a rejected retrieval. A rejected retrieval is a
	// normal negative outcome and must never be turned into an answer.
	Accepted bool `json:"accepted"`

	// Reason explains a rejection.
	Reason string `json:"reason,omitempty"`
}

// Verdict is the band a short-answer similarity falls into.
type Verdict string

// Short-answer verdicts.
const (
	// VerdictReject means no confident match; there is no answer text.
	VerdictReject Verdict = "REJECT"

	// VerdictTentative means an answer exists but may only serve as a fallback.
	VerdictTentative Verdict = "TENTATIVE"

	// VerdictConfident means the answer can be returned as final.
	VerdictConfident Verdict = "CONFIDENT"
)

// ShortAnswer is the result of matching a query against the curated Q&A index.
type ShortAnswer struct {
	// Answer is empty when Verdict is VerdictReject.
	Answer string `json:"answer,omitempty"`

	// Question is the curated question that matched.
	Question string `json:"question,omitempty"`

	// Similarity is the confidence of the best match.
	Similarity float64 `json:"similarity"`

	// Verdict is the three-band classification of Similarity.
	Verdict Verdict `json:"verdict"`

	// IsConfident is true only for VerdictConfident.
	IsConfident bool `json:"is_confident"`
}

// Attribution ties an answer to a source span.
type Attribution struct {
	Source     string  `json:"source"`
	ChunkID    int     `json:"chunk_id"`
	Confidence float64 `json:"confidence"`
}

// AnswerWithAttribution is an extracted answer with its sources.
type AnswerWithAttribution struct {
	// Text is built only from sentences found verbatim in retrieved chunks.
	Text string `json:"text"`

	// Sentences are the extracted sentences, each a verbatim substring of a chunk.
	Sentences []string `json:"sentences,omitempty"`

	// Attributions lists every chunk that contributed to Text.
	Attributions []Attribution `json:"attributions"`

	// Confidence is the retrieval confidence.
	Confidence float64 `json:"confidence"`

	// Grounded is false when the retrieval was rejected and Text is empty.
	Grounded bool `json:"grounded"`

	// Reason explains a refusal.
	Reason string `json:"reason,omitempty"`
}
