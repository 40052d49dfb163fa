package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/logger"
)

// ShortAnswerRetriever matches queries against the curated Q&A index.
type ShortAnswerRetriever struct {
	holder     *IndexHolder
	embedder   driven.EmbeddingService
	thresholds domain.Thresholds
	audit      driven.AuditSink
}

// NewShortAnswerRetriever creates a retriever reading the live snapshot from holder.
// The audit sink is optional (can be nil).
func NewShortAnswerRetriever(
	holder *IndexHolder,
	embedder driven.EmbeddingService,
	thresholds domain.Thresholds,
	audit driven.AuditSink,
) *ShortAnswerRetriever {
	return &ShortAnswerRetriever{
		holder:     holder,
		embedder:   embedder,
		thresholds: thresholds,
		audit:      audit,
	}
}

// Band places a similarity into one of the three verdict bands.
func Band(similarity float64, th domain.Thresholds) domain.Verdict {
	switch {
	case similarity >= th.AcceptThreshold:
		return domain.VerdictConfident
	case similarity >= th.MinSimilarity:
		return domain.VerdictTentative
	default:
		return domain.VerdictReject
	}
}

// Answer finds the closest curated question to query.
// An empty index yields a rejected answer with zero similarity.
func (r *ShortAnswerRetriever) Answer(ctx context.Context, query string) (domain.ShortAnswer, error) {
	start := time.Now()
	logger.Section("Short Answer")

	snap := r.holder.Load()
	if snap == nil || snap.QA == nil {
		return domain.ShortAnswer{}, fmt.Errorf("short answer: %w", domain.ErrIndexUnavailable)
	}
	if snap.QA.Len() == 0 {
		logger.Debug("Q&A index is empty")
		r.record(ctx, domain.ShortAnswer{Verdict: domain.VerdictReject}, start)
		return domain.ShortAnswer{Verdict: domain.VerdictReject}, nil
	}

	vec, err := embedQuery(ctx, r.embedder, r.thresholds.EmbedTimeout, query)
	if err != nil {
		return domain.ShortAnswer{}, fmt.Errorf("short answer: %w", err)
	}

	hits, err := snap.QA.Search(ctx, vec, r.thresholds.TopKShortAnswer)
	if err != nil {
		return domain.ShortAnswer{}, fmt.Errorf("short answer: search: %w", err)
	}
	if len(hits) == 0 {
		r.record(ctx, domain.ShortAnswer{Verdict: domain.VerdictReject}, start)
		return domain.ShortAnswer{Verdict: domain.VerdictReject}, nil
	}

	best := hits[0]
	sim := DistanceToConfidence(best.Distance)
	verdict := Band(sim, r.thresholds)
	logger.Debug("Best match %q: distance=%.4f similarity=%.4f verdict=%s",
		best.Payload.Question, best.Distance, sim, verdict)

	result := domain.ShortAnswer{
		Similarity:  sim,
		Verdict:     verdict,
		IsConfident: verdict == domain.VerdictConfident,
	}
	if verdict != domain.VerdictReject {
		result.Answer = best.Payload.Answer
		result.Question = best.Payload.Question
	}

	r.record(ctx, result, start)
	return result, nil
}

func (r *ShortAnswerRetriever) record(ctx context.Context, res domain.ShortAnswer, start time.Time) {
	emit(ctx, r.audit, domain.AuditEvent{
		Stage:      domain.StageRetrieval,
		Strategy:   domain.StrategyShortAnswer,
		Decision:   string(res.Verdict),
		Confidence: res.Similarity,
		LatencyMS:  time.Since(start).Milliseconds(),
		Fields: map[string]any{
			"matched_question": res.Question,
			"accept_threshold": r.thresholds.AcceptThreshold,
			"min_similarity":   r.thresholds.MinSimilarity,
		},
	})
}
