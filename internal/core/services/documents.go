package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/logger"
)

// contextSeparator joins chunk blocks in a context window.
const contextSeparator = "\n\n"

// ContextWindow is the bounded text handed to answer extraction.
type ContextWindow struct {
	// Text is the formatted window: each chunk behind a source header.
	Text string

	// Chunks are the whole chunks included, in relevance order.
	Chunks []domain.ScoredChunk
}

// DocumentRetriever retrieves chunks and extracts grounded answers from them.
type DocumentRetriever struct {
	holder     *IndexHolder
	embedder   driven.EmbeddingService
	thresholds domain.Thresholds
	audit      driven.AuditSink
}

// NewDocumentRetriever creates a retriever reading the live snapshot from holder.
// The audit sink is optional (can be nil).
func NewDocumentRetriever(
	holder *IndexHolder,
	embedder driven.EmbeddingService,
	thresholds domain.Thresholds,
	audit driven.AuditSink,
) *DocumentRetriever {
	return &DocumentRetriever{
		holder:     holder,
		embedder:   embedder,
		thresholds: thresholds,
		audit:      audit,
	}
}

// Retrieve fetches the topK nearest chunks and scores the retrieval by its
// best distance. A topK of zero or less uses the configured default.
//
// Rejection is a normal outcome reported through Accepted, not an error.
// Errors are returned for embedding failures and a missing index.
func (r *DocumentRetriever) Retrieve(ctx context.Context, query string, topK int) (domain.RetrievalResult, error) {
	start := time.Now()
	logger.Section("Document Retrieval")

	snap := r.holder.Load()
	if snap == nil || snap.Chunks == nil {
		return domain.RetrievalResult{}, fmt.Errorf("document retrieval: %w", domain.ErrIndexUnavailable)
	}
	if topK <= 0 {
		topK = r.thresholds.TopKDocuments
	}

	if snap.Chunks.Len() == 0 {
		res := domain.RetrievalResult{Reason: "document index is empty"}
		r.record(ctx, res, nil, start)
		return res, nil
	}

	vec, err := embedQuery(ctx, r.embedder, r.thresholds.EmbedTimeout, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("document retrieval: %w", err)
	}

	hits, err := snap.Chunks.Search(ctx, vec, topK)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("document retrieval: search: %w", err)
	}
	if len(hits) == 0 {
		res := domain.RetrievalResult{Reason: "no chunks retrieved"}
		r.record(ctx, res, nil, start)
		return res, nil
	}

	distances := make([]float64, len(hits))
	chunks := make([]domain.ScoredChunk, len(hits))
	for i, h := range hits {
		distances[i] = h.Distance
		chunks[i] = domain.ScoredChunk{
			Chunk:      h.Payload,
			Distance:   h.Distance,
			Confidence: DistanceToConfidence(h.Distance),
		}
	}

	best := hits[0].Distance
	res := domain.RetrievalResult{
		Chunks:     chunks,
		Confidence: DistanceToConfidence(best),
	}

	th := r.thresholds
	switch {
	case res.Confidence < th.MinConfidenceFloor:
		res.Reason = fmt.Sprintf("confidence %.3f below floor %.2f", res.Confidence, th.MinConfidenceFloor)
	case th.MaxDistanceCeiling > 0 && best > th.MaxDistanceCeiling:
		res.Reason = fmt.Sprintf("best distance %.3f above ceiling %.2f", best, th.MaxDistanceCeiling)
	default:
		res.Accepted = true
	}

	logger.Debug("Retrieved %d chunks: best distance=%.4f confidence=%.4f accepted=%t",
		len(chunks), best, res.Confidence, res.Accepted)
	r.record(ctx, res, distances, start)
	return res, nil
}

// AssembleContext formats the result's chunks into a window bounded by
// the character budget. Chunks are included whole, most relevant first,
// stopping at the first chunk that would exceed the budget.
func (r *DocumentRetriever) AssembleContext(result domain.RetrievalResult) ContextWindow {
	var (
		w     ContextWindow
		parts []string
		used  int
	)
	for _, sc := range result.Chunks {
		block := formatChunk(sc.Chunk)
		size := utf8.RuneCountInString(block)
		if len(parts) > 0 {
			size += utf8.RuneCountInString(contextSeparator)
		}
		if used+size > r.thresholds.ContextCharBudget {
			break
		}
		used += size
		parts = append(parts, block)
		w.Chunks = append(w.Chunks, sc)
	}
	w.Text = strings.Join(parts, contextSeparator)
	return w
}

func formatChunk(c domain.Chunk) string {
	return fmt.Sprintf("[Source: %s, Chunk %d]\n%s", c.Source, c.ChunkID, c.Text)
}

// candidate is a sentence found in a context chunk.
type candidate struct {
	text    string
	rank    int
	pos     int
	overlap int
}

// ComposeAnswer extracts an answer from the accepted result.
//
// Sentences are copied verbatim from the context window and ranked by how
// many query terms they contain, then by chunk rank, then by position.
// When no sentence shares a term with the query, the leading sentences of
// the best chunk are used. A rejected result yields an ungrounded refusal.
func (r *DocumentRetriever) ComposeAnswer(
	ctx context.Context, query string, result domain.RetrievalResult,
) (domain.AnswerWithAttribution, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnswerWithAttribution{}, err
	}
	if !result.Accepted {
		reason := result.Reason
		if reason == "" {
			reason = "retrieval rejected"
		}
		return domain.AnswerWithAttribution{Confidence: result.Confidence, Reason: reason}, nil
	}

	window := r.AssembleContext(result)
	if len(window.Chunks) == 0 {
		return domain.AnswerWithAttribution{
			Confidence: result.Confidence,
			Reason:     "no chunk fits the context budget",
		}, nil
	}

	terms := queryTerms(query)
	var all, cut []candidate
	for rank, sc := range window.Chunks {
		sentences := SplitSentences(sc.Chunk.Text)
		for pos, s := range sentences {
			c := candidate{
				text:    s,
				rank:    rank,
				pos:     pos,
				overlap: termOverlap(s, terms),
			}
			if r.cutAtEdge(sc.Chunk, s, pos, len(sentences)) {
				cut = append(cut, c)
				continue
			}
			all = append(all, c)
		}
	}
	if len(all) == 0 {
		all = cut
	}

	maxSentences := r.thresholds.MaxAnswerSentences
	picked := slices.DeleteFunc(slices.Clone(all), func(c candidate) bool { return c.overlap == 0 })
	slices.SortStableFunc(picked, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(b.overlap, a.overlap),
			cmp.Compare(a.rank, b.rank),
			cmp.Compare(a.pos, b.pos),
		)
	})
	if len(picked) == 0 {
		logger.Debug("No sentence overlaps the query, using leading sentences of the best chunk")
		for _, c := range all {
			if c.rank == 0 {
				picked = append(picked, c)
			}
		}
	}
	picked = distinctText(picked)
	if len(picked) > maxSentences {
		picked = picked[:maxSentences]
	}
	if len(picked) == 0 {
		return domain.AnswerWithAttribution{
			Confidence: result.Confidence,
			Reason:     "retrieved chunks contain no sentences",
		}, nil
	}

	answer := domain.AnswerWithAttribution{
		Confidence: result.Confidence,
		Grounded:   true,
	}
	seen := make(map[int]bool)
	for _, c := range picked {
		answer.Sentences = append(answer.Sentences, c.text)
		if seen[c.rank] {
			continue
		}
		seen[c.rank] = true
		sc := window.Chunks[c.rank]
		answer.Attributions = append(answer.Attributions, domain.Attribution{
			Source:     sc.Chunk.Source,
			ChunkID:    sc.Chunk.ChunkID,
			Confidence: sc.Confidence,
		})
	}
	answer.Text = strings.Join(answer.Sentences, " ")
	return answer, nil
}

// cutAtEdge reports whether sentence is a fragment left by a window
// boundary: a lowercase lead in a chunk that starts inside the document,
// or an unterminated tail in a full-size chunk.
func (r *DocumentRetriever) cutAtEdge(c domain.Chunk, sentence string, pos, count int) bool {
	if pos == 0 && c.StartChar > 0 {
		first, _ := utf8.DecodeRuneInString(sentence)
		if !unicode.IsUpper(first) && !unicode.IsDigit(first) {
			return true
		}
	}
	if pos == count-1 && r.thresholds.ChunkSize > 0 && c.Len() >= r.thresholds.ChunkSize {
		last, _ := utf8.DecodeLastRuneInString(sentence)
		if !strings.ContainsRune(".!?", last) {
			return true
		}
	}
	return false
}

// distinctText keeps the first candidate for each sentence text.
// Overlapping windows repeat sentences across neighbouring chunks.
func distinctText(cs []candidate) []candidate {
	seen := make(map[string]bool, len(cs))
	out := cs[:0]
	for _, c := range cs {
		if seen[c.text] {
			continue
		}
		seen[c.text] = true
		out = append(out, c)
	}
	return out
}

// Answer retrieves with the default topK and composes an answer.
func (r *DocumentRetriever) Answer(ctx context.Context, query string) (domain.AnswerWithAttribution, error) {
	res, err := r.Retrieve(ctx, query, 0)
	if err != nil {
		return domain.AnswerWithAttribution{}, err
	}
	return r.ComposeAnswer(ctx, query, res)
}

func (r *DocumentRetriever) record(ctx context.Context, res domain.RetrievalResult, distances []float64, start time.Time) {
	decision := "REJECTED"
	if res.Accepted {
		decision = "ACCEPTED"
	}
	fields := map[string]any{
		"chunks":          len(res.Chunks),
		"mean_confidence": MeanConfidence(distances),
		"floor":           r.thresholds.MinConfidenceFloor,
	}
	if len(distances) > 0 {
		fields["best_distance"] = distances[0]
	}
	emit(ctx, r.audit, domain.AuditEvent{
		Stage:      domain.StageRetrieval,
		Strategy:   domain.StrategyDocumentRAG,
		Decision:   decision,
		Confidence: res.Confidence,
		Reason:     res.Reason,
		LatencyMS:  time.Since(start).Milliseconds(),
		Fields:     fields,
	})
}

// SplitSentences splits text at sentence-ending punctuation followed by
// whitespace and at line breaks. Every returned sentence is a trimmed,
// verbatim substring of text.
func SplitSentences(text string) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	start := 0
	for i, r := range text {
		switch {
		case r == '\n':
			add(text[start:i])
			start = i + 1
		case r == '.' || r == '!' || r == '?':
			next := i + 1
			if next >= len(text) {
				continue
			}
			nr, _ := utf8.DecodeRuneInString(text[next:])
			if unicode.IsSpace(nr) {
				add(text[start:next])
				start = next
			}
		}
	}
	add(text[start:])
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"how": true, "does": true, "can": true, "there": true, "this": true,
	"that": true, "with": true, "from": true, "have": true, "has": true,
	"you": true, "your": true, "about": true, "any": true, "tell": true,
}

// tokenize lowercases text and splits it into letter/digit runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func queryTerms(query string) map[string]bool {
	terms := make(map[string]bool)
	for _, tok := range tokenize(query) {
		if utf8.RuneCountInString(tok) < 3 || stopWords[tok] {
			continue
		}
		terms[tok] = true
	}
	return terms
}

// termOverlap counts the distinct query terms present in sentence.
func termOverlap(sentence string, terms map[string]bool) int {
	found := make(map[string]bool)
	for _, tok := range tokenize(sentence) {
		if terms[tok] {
			found[tok] = true
		}
	}
	return len(found)
}
