package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// fakeNormaliser tags its output with its own name.
type fakeNormaliser struct {
	name     string
	types    []string
	priority int
}

func (f *fakeNormaliser) SupportedMIMETypes() []string { return f.types }
func (f *fakeNormaliser) Priority() int                { return f.priority }
func (f *fakeNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Document: domain.Document{Source: raw.SourceName(), Format: f.name}}, nil
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeNormaliser{name: "fallback", types: []string{"text/plain"}, priority: 5})
	r.Register(&fakeNormaliser{name: "special", types: []string{"text/plain"}, priority: 60})
	r.Register(&fakeNormaliser{name: "middle", types: []string{"text/plain"}, priority: 50})

	result, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "a.txt", MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "special", result.Document.Format)
}

func TestRegistry_EqualPriorityKeepsFirst(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeNormaliser{name: "first", types: []string{"text/plain"}, priority: 50})
	r.Register(&fakeNormaliser{name: "second", types: []string{"text/plain"}, priority: 50})

	result, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "a.txt", MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "first", result.Document.Format)
}

func TestRegistry_MIMEParametersIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeNormaliser{name: "html", types: []string{"text/html"}, priority: 50})

	assert.True(t, r.Supports("text/html; charset=utf-8"))
	assert.True(t, r.Supports("TEXT/HTML"))
	assert.False(t, r.Supports("application/pdf"))
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "a.bin", MIMEType: "application/octet-stream"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "a.bin")
}

func TestRegistry_NilDocument(t *testing.T) {
	_, err := NewRegistry().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	types := r.SupportedMIMETypes()
	for _, mt := range []string{"text/plain", "text/markdown", "text/html", "application/pdf"} {
		assert.Contains(t, types, mt)
	}
	assert.IsIncreasing(t, types)

	result, err := r.Normalise(context.Background(), &domain.RawDocument{
		URI:      "/srv/docs/faq.md",
		MIMEType: "text/markdown",
		Content:  []byte("# FAQ\n\nAsk **anything**."),
	})
	require.NoError(t, err)
	assert.Equal(t, "markdown", result.Document.Format)
	assert.Equal(t, "FAQ\n\nAsk anything.", result.Document.Content)
}
