package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Strategy is one answer-producing tier. The orchestrator only sees this
// capability and never the concrete retrievers.
type Strategy interface {
	// Name identifies the tier.
	Name() domain.Strategy

	// Attempt tries to answer query. A result that is not Accepted is a
	// normal outcome; errors are reserved for failures.
	Attempt(ctx context.Context, query string) (domain.AttemptResult, error)
}

// ruleSource is the attribution source for rule engine answers.
const ruleSource = "rules"

// RuleStrategy answers from the deterministic rule engine.
type RuleStrategy struct {
	engine driven.RuleEngine
}

// NewRuleStrategy wraps a rule engine.
func NewRuleStrategy(engine driven.RuleEngine) *RuleStrategy {
	return &RuleStrategy{engine: engine}
}

// Name returns StrategyRule.
func (s *RuleStrategy) Name() domain.Strategy { return domain.StrategyRule }

// Attempt matches query against the rule patterns. A match is always final.
func (s *RuleStrategy) Attempt(ctx context.Context, query string) (domain.AttemptResult, error) {
	res := domain.AttemptResult{Strategy: domain.StrategyRule}
	if s.engine == nil {
		res.Reason = "no rule engine configured"
		return res, nil
	}

	answer, ok, err := s.engine.Match(ctx, query)
	if err != nil {
		return res, fmt.Errorf("rule engine: %w", err)
	}
	if !ok || answer == "" {
		res.Reason = "no rule matched"
		return res, nil
	}

	res.Answer = answer
	res.Confidence = 1
	res.Accepted = true
	res.Attributions = []domain.Attribution{{Source: ruleSource, Confidence: 1}}
	return res, nil
}

// qaSource prefixes the attribution source for curated answers.
const qaSource = "qa: "

// ShortAnswerStrategy answers from the curated Q&A index.
// Only confident matches are accepted; tentative ones are reported but
// never final.
type ShortAnswerStrategy struct {
	retriever *ShortAnswerRetriever
}

// NewShortAnswerStrategy wraps a short-answer retriever.
func NewShortAnswerStrategy(retriever *ShortAnswerRetriever) *ShortAnswerStrategy {
	return &ShortAnswerStrategy{retriever: retriever}
}

// Name returns StrategyShortAnswer.
func (s *ShortAnswerStrategy) Name() domain.Strategy { return domain.StrategyShortAnswer }

// Attempt looks up query in the Q&A index.
func (s *ShortAnswerStrategy) Attempt(ctx context.Context, query string) (domain.AttemptResult, error) {
	sa, err := s.retriever.Answer(ctx, query)
	if err != nil {
		return domain.AttemptResult{Strategy: domain.StrategyShortAnswer}, err
	}

	res := domain.AttemptResult{
		Strategy:   domain.StrategyShortAnswer,
		Answer:     sa.Answer,
		Confidence: sa.Similarity,
		Accepted:   sa.IsConfident,
		Reason:     fmt.Sprintf("similarity %.3f is %s", sa.Similarity, sa.Verdict),
	}
	if sa.Question != "" {
		res.Attributions = []domain.Attribution{{Source: qaSource + sa.Question, Confidence: sa.Similarity}}
	}
	return res, nil
}

// DocumentStrategy answers by retrieval and extraction over document chunks.
type DocumentStrategy struct {
	retriever *DocumentRetriever
}

// NewDocumentStrategy wraps a document retriever.
func NewDocumentStrategy(retriever *DocumentRetriever) *DocumentStrategy {
	return &DocumentStrategy{retriever: retriever}
}

// Name returns StrategyDocumentRAG.
func (s *DocumentStrategy) Name() domain.Strategy { return domain.StrategyDocumentRAG }

// Attempt retrieves chunks and extracts a grounded answer.
func (s *DocumentStrategy) Attempt(ctx context.Context, query string) (domain.AttemptResult, error) {
	ans, err := s.retriever.Answer(ctx, query)
	if err != nil {
		return domain.AttemptResult{Strategy: domain.StrategyDocumentRAG}, err
	}

	return domain.AttemptResult{
		Strategy:     domain.StrategyDocumentRAG,
		Answer:       ans.Text,
		Confidence:   ans.Confidence,
		Accepted:     ans.Grounded,
		Reason:       ans.Reason,
		Attributions: ans.Attributions,
	}, nil
}
