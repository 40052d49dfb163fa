package driven

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// Classifier assigns a query to a category.
// The returned distribution must cover every known label and sum to one.
type Classifier interface {
	// Classify returns the label distribution for text.
	Classify(ctx context.Context, text string) (domain.ClassificationResult, error)

	// Labels returns the label set in a stable order.
	Labels() []string
}
