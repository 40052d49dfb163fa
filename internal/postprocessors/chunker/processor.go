// Package chunker provides a fixed-size sliding window chunking processor.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 400

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// Chunk splits doc into windows of chunkSize characters, each starting
// chunkSize-overlap characters after the previous one. The final window
// ends at the end of the document and may be shorter. Offsets count runes.
//
// Requires 0 <= overlap < chunkSize. An empty document yields no chunks.
func Chunk(doc domain.Document, chunkSize, overlap int) ([]domain.Chunk, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk size %d with overlap %d", domain.ErrInvalidInput, chunkSize, overlap)
	}

	runes := []rune(doc.Content)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	stride := chunkSize - overlap
	chunks := make([]domain.Chunk, 0, n/stride+1)

	for start := 0; ; start += stride {
		end := min(start+chunkSize, n)
		chunks = append(chunks, domain.Chunk{
			Text:      string(runes[start:end]),
			Source:    doc.Source,
			ChunkID:   len(chunks),
			StartChar: start,
			EndChar:   end,
		})
		if end == n {
			break
		}
	}

	return chunks, nil
}

// Reconstruct rebuilds the document text from consecutive chunks of one
// source by dropping the overlapping prefix of every chunk after the first.
func Reconstruct(chunks []domain.Chunk) string {
	var out []rune
	covered := 0
	for _, c := range chunks {
		text := []rune(c.Text)
		skip := max(covered-c.StartChar, 0)
		if skip < len(text) {
			out = append(out, text[skip:]...)
		}
		covered = max(covered, c.EndChar)
	}
	return string(out)
}

// Processor splits document content into fixed-size chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) { p.chunkSize = size }
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) { p.overlap = overlap }
}

// New creates a new chunker processor with the given options.
// Returns ErrInvalidInput unless 0 <= overlap < chunk size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 || p.overlap < 0 || p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: chunk size %d with overlap %d",
			domain.ErrInvalidInput, p.chunkSize, p.overlap)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Chunk(*doc, p.chunkSize, p.overlap)
}
