package normalisers

import (
	"github.com/custodia-labs/concierge/internal/normalisers/html"
	"github.com/custodia-labs/concierge/internal/normalisers/markdown"
	"github.com/custodia-labs/concierge/internal/normalisers/pdf"
	"github.com/custodia-labs/concierge/internal/normalisers/plaintext"
)

// RegisterDefaults registers every built-in normaliser.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(pdf.New())
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
