package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
	"github.com/custodia-labs/concierge/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// RefusalMessage is returned when no strategy produced a grounded answer.
const RefusalMessage = "I don't have a grounded answer to that question. " +
	"Please contact the college office or check the official website."

// AnswerService validates, classifies, routes and answers queries.
// It holds no per-query state and is safe for concurrent use.
type AnswerService struct {
	classifier driven.Classifier
	router     *Router
	strategies map[domain.Strategy]Strategy
	validator  *QueryValidator
	thresholds domain.Thresholds

	audit      driven.AuditSink
	unresolved driven.UnresolvedStore
	stats      driven.StatsStore
}

// NewAnswerService creates an orchestrator over the given strategies.
// Strategies are keyed by their Name.
func NewAnswerService(
	classifier driven.Classifier,
	thresholds domain.Thresholds,
	strategies ...Strategy,
) *AnswerService {
	byName := make(map[domain.Strategy]Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	return &AnswerService{
		classifier: classifier,
		router:     NewRouter(thresholds),
		strategies: byName,
		thresholds: thresholds,
	}
}

// SetValidator sets the pre-routing query validator. Nil disables validation.
func (s *AnswerService) SetValidator(v *QueryValidator) {
	s.validator = v
}

// SetAuditSink sets the sink for query events.
func (s *AnswerService) SetAuditSink(sink driven.AuditSink) {
	s.audit = sink
}

// SetUnresolvedStore sets the store for refused queries.
func (s *AnswerService) SetUnresolvedStore(store driven.UnresolvedStore) {
	s.unresolved = store
}

// SetStatsStore sets the store for query frequency counters.
func (s *AnswerService) SetStatsStore(store driven.StatsStore) {
	s.stats = store
}

// Ask answers one query.
func (s *AnswerService) Ask(ctx context.Context, query string) (*domain.Answer, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	queryID := NewQueryID()
	ctx = WithQueryID(ctx, queryID)

	logger.Section("Query " + queryID)
	logger.Debug("Query: %q", query)

	if s.validator != nil {
		if err := s.validator.Validate(query); err != nil {
			var ve *domain.ValidationError
			reason := err.Error()
			if errors.As(err, &ve) {
				reason = ve.Reason
			}
			logger.Info("Query rejected: %s", reason)
			emit(ctx, s.audit, domain.AuditEvent{
				Stage:     domain.StageValidation,
				Decision:  "REJECTED",
				Reason:    reason,
				LatencyMS: time.Since(start).Milliseconds(),
			})
			return nil, err
		}
	} else if query == "" {
		return nil, &domain.ValidationError{Reason: ReasonEmpty, Message: MessageEmpty}
	}

	ans := &domain.Answer{
		QueryID: queryID,
		Query:   query,
		States:  []domain.QueryState{domain.StateValidated},
	}
	s.countQuery(ctx, query)

	decision := s.classify(ctx, query, ans)
	ans.Decision = decision
	ans.States = append(ans.States, domain.StateStrategySelected)

	emit(ctx, s.audit, domain.AuditEvent{
		Stage:      domain.StageRouting,
		Strategy:   decision.ChosenStrategy,
		Decision:   formatChain(decision.FallbackChain),
		Confidence: classifierConfidence(ans),
		Reason:     decision.Reason,
		Fields: map[string]any{
			"label":           classifierLabel(ans),
			"always_fallback": decision.AlwaysFallback,
		},
	})
	logger.Info("Routing: %s", decision.Reason)

	final, attempted, lastErr := s.runChain(ctx, query, decision, ans)

	ans.LatencyMS = time.Since(start).Milliseconds()
	switch {
	case final != nil:
		ans.Text = final.Answer
		ans.Strategy = final.Strategy
		ans.Confidence = final.Confidence
		ans.Attributions = final.Attributions
		ans.Grounded = true
		ans.States = append(ans.States, domain.StateAnswered)

	case lastErr != nil:
		ans.States = append(ans.States, domain.StateExhausted)
		s.recordUnresolved(ctx, ans, lastErr.Error())
		emit(ctx, s.audit, domain.AuditEvent{
			Stage:     domain.StageError,
			Decision:  string(domain.StateExhausted),
			Reason:    lastErr.Error(),
			LatencyMS: ans.LatencyMS,
		})
		logger.Warn("All strategies exhausted: %v", lastErr)
		return nil, &domain.ExhaustedError{Attempted: attempted, Cause: lastErr}

	default:
		ans.Text = RefusalMessage
		ans.Refused = true
		ans.States = append(ans.States, domain.StateExhausted)
		s.recordUnresolved(ctx, ans, "no strategy reached its acceptance threshold")
	}

	emit(ctx, s.audit, domain.AuditEvent{
		Stage:      domain.StageAnswer,
		Strategy:   ans.Strategy,
		Decision:   string(ans.FinalState()),
		Confidence: ans.Confidence,
		Reason:     decision.Reason,
		LatencyMS:  ans.LatencyMS,
		Fields: map[string]any{
			"refused":  ans.Refused,
			"attempts": len(ans.Attempts),
			"sources":  len(ans.Attributions),
		},
	})
	return ans, nil
}

// classify runs the classifier under its timeout and routes the result.
// A failed or malformed classification routes as low confidence.
func (s *AnswerService) classify(ctx context.Context, query string, ans *domain.Answer) domain.RoutingDecision {
	defer func() { ans.States = append(ans.States, domain.StateClassified) }()

	if s.classifier == nil {
		return s.router.Fallback(fmt.Errorf("%w: no classifier configured", domain.ErrClassification))
	}

	cctx := ctx
	if s.thresholds.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.thresholds.ClassifyTimeout)
		defer cancel()
	}

	res, err := s.classifier.Classify(cctx, query)
	if err == nil {
		err = res.Validate()
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrClassification, err)
		logger.Warn("Classification failed: %v", err)
		return s.router.Fallback(err)
	}

	logger.Debug("Classified as %q (%.3f)", res.Label, res.Confidence)
	ans.Classification = &res
	return s.router.Decide(res)
}

// runChain attempts each strategy in order. It returns the final accepted
// attempt (nil if none), the strategies attempted, and the error of the
// last attempt when that attempt failed.
//
// The chain stops at the first accepted attempt, except that a mid-band
// decision always runs the last strategy; its accepted answer then
// replaces the earlier one.
func (s *AnswerService) runChain(
	ctx context.Context, query string, decision domain.RoutingDecision, ans *domain.Answer,
) (*domain.AttemptResult, []domain.Strategy, error) {
	var (
		final     *domain.AttemptResult
		attempted []domain.Strategy
		lastErr   error
	)

	chain := decision.FallbackChain
	for i, name := range chain {
		if i > 0 {
			ans.States = append(ans.States, domain.StateEscalated)
			logger.Debug("Escalating to %s", name)
		}
		attempted = append(attempted, name)

		strategy, ok := s.strategies[name]
		if !ok {
			ans.Attempts = append(ans.Attempts, domain.AttemptResult{
				Strategy: name,
				Reason:   "strategy not available",
			})
			lastErr = nil
			continue
		}

		res, err := strategy.Attempt(ctx, query)
		if err != nil {
			logger.Warn("%s failed: %v", name, err)
			ans.Attempts = append(ans.Attempts, domain.AttemptResult{Strategy: name, Reason: err.Error()})
			emit(ctx, s.audit, domain.AuditEvent{
				Stage:    domain.StageError,
				Strategy: name,
				Reason:   err.Error(),
			})
			if ctx.Err() != nil {
				return final, attempted, err
			}
			lastErr = err
			continue
		}
		lastErr = nil

		res.Strategy = name
		ans.Attempts = append(ans.Attempts, res)
		logger.Debug("%s: accepted=%t confidence=%.3f %s", name, res.Accepted, res.Confidence, res.Reason)

		if !res.Accepted {
			continue
		}
		accepted := res
		final = &accepted
		if decision.AlwaysFallback && i < len(chain)-1 {
			continue
		}
		break
	}

	if final != nil {
		return final, attempted, nil
	}
	return nil, attempted, lastErr
}

func (s *AnswerService) countQuery(ctx context.Context, query string) {
	if s.stats == nil {
		return
	}
	if err := s.stats.IncrementQuery(ctx, query); err != nil {
		logger.Warn("Failed to record query stats: %v", err)
	}
}

func (s *AnswerService) recordUnresolved(ctx context.Context, ans *domain.Answer, reason string) {
	if s.unresolved == nil {
		return
	}
	now := time.Now().UTC()
	q := domain.UnresolvedQuery{
		Query:     ans.Query,
		QueryID:   ans.QueryID,
		Reason:    reason,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if ans.Classification != nil {
		q.Label = ans.Classification.Label
	}
	for _, a := range ans.Attempts {
		switch a.Strategy {
		case domain.StrategyShortAnswer:
			q.ShortAnswerSimilarity = max(q.ShortAnswerSimilarity, a.Confidence)
		case domain.StrategyDocumentRAG:
			q.RetrievalConfidence = max(q.RetrievalConfidence, a.Confidence)
		}
	}
	err := s.unresolved.RecordUnresolved(ctx, q)
	if err != nil {
		logger.Warn("Failed to record unresolved query: %v", err)
	}
}

func formatChain(chain []domain.Strategy) string {
	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = s.String()
	}
	return strings.Join(names, " -> ")
}

func classifierConfidence(ans *domain.Answer) float64 {
	if ans.Classification == nil {
		return 0
	}
	return ans.Classification.Confidence
}

func classifierLabel(ans *domain.Answer) string {
	if ans.Classification == nil {
		return ""
	}
	return ans.Classification.Label
}
