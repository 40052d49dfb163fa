// Package postprocessors turns normalised documents into index chunks.
package postprocessors

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order and checks the chunks they produce.
// The first processor receives nil chunks and creates them.
type Pipeline struct {
	processors []driven.PostProcessor
}

func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process chunks doc. Every chunk must carry the document's source,
// sequential IDs from 0, and text whose length matches its offsets.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, proc := range p.processors {
		var err error
		if chunks, err = proc.Process(ctx, doc, chunks); err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
	}

	for i, c := range chunks {
		if err := checkChunk(doc, i, c); err != nil {
			return nil, fmt.Errorf("%s chunk %d: %w", doc.Source, i, err)
		}
	}
	return chunks, nil
}

func checkChunk(doc *domain.Document, i int, c domain.Chunk) error {
	switch {
	case c.Source != doc.Source:
		return fmt.Errorf("%w: source %q", domain.ErrInvalidInput, c.Source)
	case c.ChunkID != i:
		return fmt.Errorf("%w: id %d out of sequence", domain.ErrInvalidInput, c.ChunkID)
	case c.StartChar < 0 || c.EndChar <= c.StartChar:
		return fmt.Errorf("%w: span [%d, %d)", domain.ErrInvalidInput, c.StartChar, c.EndChar)
	case utf8.RuneCountInString(c.Text) != c.Len():
		return fmt.Errorf("%w: text length does not match span [%d, %d)",
			domain.ErrInvalidInput, c.StartChar, c.EndChar)
	}
	return nil
}
