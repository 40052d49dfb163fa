package services

import (
	"fmt"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// Router maps a classification to a routing decision.
// It is pure: the same classification and thresholds always yield the
// same decision.
type Router struct {
	thresholds domain.Thresholds
}

// NewRouter creates a router over the given thresholds.
func NewRouter(thresholds domain.Thresholds) *Router {
	return &Router{thresholds: thresholds}
}

// Decide selects the first strategy and the fallback chain.
//
//   - confidence below the mid threshold goes straight to document retrieval
//   - rule-group labels at high confidence try the rule engine first
//   - similarity-group labels at high confidence try the short-answer index first
//   - mid-band group labels try their group strategy, then always retrieval
//   - labels outside both groups go to document retrieval
func (r *Router) Decide(c domain.ClassificationResult) domain.RoutingDecision {
	th := r.thresholds
	conf := c.Confidence

	if conf < th.MidConfidence {
		return ragOnly(fmt.Sprintf("low classifier confidence %.3f < mid threshold %.2f for label %q",
			conf, th.MidConfidence, c.Label))
	}

	var group domain.Strategy
	switch {
	case th.IsDeterministicLabel(c.Label):
		group = domain.StrategyRule
	case th.IsSimilarityLabel(c.Label):
		group = domain.StrategyShortAnswer
	default:
		return ragOnly(fmt.Sprintf("label %q at confidence %.3f belongs to no strategy group",
			c.Label, conf))
	}

	chain := []domain.Strategy{group, domain.StrategyDocumentRAG}
	if conf >= th.HighConfidence {
		return domain.RoutingDecision{
			ChosenStrategy: group,
			Reason: fmt.Sprintf("label %q at high confidence %.3f >= %.2f routes to %s",
				c.Label, conf, th.HighConfidence, group),
			FallbackChain: chain,
		}
	}

	return domain.RoutingDecision{
		ChosenStrategy: group,
		Reason: fmt.Sprintf("label %q at mid confidence %.3f in [%.2f, %.2f) routes to %s with forced %s fallback",
			c.Label, conf, th.MidConfidence, th.HighConfidence, group, domain.StrategyDocumentRAG),
		FallbackChain:  chain,
		AlwaysFallback: true,
	}
}

// Fallback is the decision used when classification itself failed.
func (r *Router) Fallback(cause error) domain.RoutingDecision {
	return ragOnly(fmt.Sprintf("classification unavailable (%v), treated as low confidence", cause))
}

func ragOnly(reason string) domain.RoutingDecision {
	return domain.RoutingDecision{
		ChosenStrategy: domain.StrategyDocumentRAG,
		Reason:         reason,
		FallbackChain:  []domain.Strategy{domain.StrategyDocumentRAG},
	}
}
