package driving

import (
	"context"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// AnswerService routes a query through the strategy tiers.
type AnswerService interface {
	// Ask validates, classifies and answers query.
	//
	// A refusal (no strategy confident enough) is returned as an Answer
	// with Refused set and a nil error. Errors are returned for rejected
	// input (*domain.ValidationError) and for chains that ended in a
	// failure (*domain.ExhaustedError).
	Ask(ctx context.Context, query string) (*domain.Answer, error)
}
