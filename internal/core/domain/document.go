package domain

import "unicode/utf8"

// Document is an immutable text blob with a source identifier.
// Documents are produced by the corpus loaders and consumed read-only
// by the chunker.
type Document struct {
	// Source identifies where the text came from (usually a file name).
	Source string

	// Content is the full normalised text.
	Content string

	// Format is the normaliser that produced Content (plaintext, markdown, html, pdf).
	Format string
}

// Length returns the document length in characters (runes).
// Chunk offsets are expressed in the same unit.
func (d Document) Length() int {
	return utf8.RuneCountInString(d.Content)
}

// Chunk is a contiguous character span of a source document.
// Chunks are derived deterministically by the chunker and never mutated.
type Chunk struct {
	// Text is the verbatim span Content[StartChar:EndChar] (in runes).
	Text string `json:"text"`

	// Source is the Document.Source the span was cut from.
	Source string `json:"source"`

	// ChunkID is sequential within a source, starting at 0.
	ChunkID int `json:"chunk_id"`

	// StartChar is the inclusive start offset in characters.
	StartChar int `json:"start_char"`

	// EndChar is the exclusive end offset in characters.
	EndChar int `json:"end_char"`
}

// Len returns the span length in characters.
func (c Chunk) Len() int {
	return c.EndChar - c.StartChar
}

// QAPair is a curated question with its answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// IndexEntry pairs a vector with an opaque payload.
// Entries are owned by exactly one vector index.
type IndexEntry[P any] struct {
	Vector  []float32
	Payload P
}
