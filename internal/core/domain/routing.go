package domain

import "slices"

const unknownDescription = "Unknown"

// Strategy identifies an answer-producing strategy.
type Strategy string

// Available strategies, cheapest first.
const (
	// StrategyRule answers from the deterministic pattern rule engine.
	StrategyRule Strategy = "RULE"

	// StrategyShortAnswer answers from the curated Q&A similarity index.
	StrategyShortAnswer Strategy = "SHORT_ANSWER"

	// StrategyDocumentRAG answers by retrieving and extracting from document chunks.
	StrategyDocumentRAG Strategy = "DOCUMENT_RAG"
)

// IsValid returns true if the strategy is recognised.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyRule, StrategyShortAnswer, StrategyDocumentRAG:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyRule:
		return "Rule engine (exact and template patterns)"
	case StrategyShortAnswer:
		return "Short answer (curated Q&A similarity)"
	case StrategyDocumentRAG:
		return "Document retrieval (grounded extraction)"
	default:
		return unknownDescription
	}
}

// AllStrategies returns all strategies in escalation order.
func AllStrategies() []Strategy {
	return []Strategy{StrategyRule, StrategyShortAnswer, StrategyDocumentRAG}
}

// RoutingDecision records which strategy the router selected and why.
// It is produced once per query and handed to the audit sink.
type RoutingDecision struct {
	// ChosenStrategy is the first strategy to attempt.
	ChosenStrategy Strategy `json:"chosen_strategy"`

	// Reason explains the decision well enough to reconstruct it.
	Reason string `json:"reason"`

	// FallbackChain is the ordered list of strategies to attempt,
	// starting with ChosenStrategy.
	FallbackChain []Strategy `json:"fallback_chain"`

	// AlwaysFallback is set for mid-band decisions: the last strategy in the
	// chain is attempted even when an earlier one was confident.
	AlwaysFallback bool `json:"always_fallback"`
}

// HasFallback reports whether the chain continues after the chosen strategy.
func (d RoutingDecision) HasFallback() bool {
	return len(d.FallbackChain) > 1
}

// Equal compares two decisions field by field.
func (d RoutingDecision) Equal(other RoutingDecision) bool {
	return d.ChosenStrategy == other.ChosenStrategy &&
		d.Reason == other.Reason &&
		d.AlwaysFallback == other.AlwaysFallback &&
		slices.Equal(d.FallbackChain, other.FallbackChain)
}

// QueryState is a step in the lifecycle of one query.
type QueryState string

// Query lifecycle states.
const (
	StateValidated        QueryState = "VALIDATED"
	StateClassified       QueryState = "CLASSIFIED"
	StateStrategySelected QueryState = "STRATEGY_SELECTED"
	StateEscalated        QueryState = "ESCALATED"
	StateAnswered         QueryState = "ANSWERED"
	StateExhausted        QueryState = "EXHAUSTED"
)

// IsTerminal returns true for ANSWERED and EXHAUSTED.
func (s QueryState) IsTerminal() bool {
	return s == StateAnswered || s == StateExhausted
}

// AttemptResult is what every strategy returns from a single attempt.
type AttemptResult struct {
	// Strategy that produced this result.
	Strategy Strategy `json:"strategy"`

	// Answer is empty when the strategy had nothing to offer.
	Answer string `json:"answer,omitempty"`

	// Confidence is the strategy's own score for the answer.
	Confidence float64 `json:"confidence"`

	// Accepted is true when the strategy considers the answer final.
	Accepted bool `json:"accepted"`

	// Reason explains the verdict (no match, tentative band, rejected retrieval).
	Reason string `json:"reason,omitempty"`

	// Attributions lists the source spans backing the answer.
	Attributions []Attribution `json:"attributions,omitempty"`
}

// Answer is the final result of routing one query.
type Answer struct {
	// QueryID correlates audit events for this query.
	QueryID string `json:"query_id"`

	// Query is the text as received.
	Query string `json:"query"`

	// Text is the answer, or a refusal message when Refused is set.
	Text string `json:"text"`

	// Strategy produced Text. Empty when refused.
	Strategy Strategy `json:"strategy,omitempty"`

	// Confidence of the final answer.
	Confidence float64 `json:"confidence"`

	// Classification is the classifier verdict, nil when classification failed.
	Classification *ClassificationResult `json:"classification,omitempty"`

	// Decision is the router's decision.
	Decision RoutingDecision `json:"decision"`

	// Attempts lists every strategy attempt in order.
	Attempts []AttemptResult `json:"attempts"`

	// Attributions backs Text with source spans.
	Attributions []Attribution `json:"attributions,omitempty"`

	// States is the lifecycle trace.
	States []QueryState `json:"states"`

	// Grounded is true when Text was accepted by a strategy backed by a
	// curated pair, a rule or a retrieved chunk.
	Grounded bool `json:"grounded"`

	// Refused is set when no strategy produced an accepted answer.
	Refused bool `json:"refused"`

	// LatencyMS is the end-to-end handling time.
	LatencyMS int64 `json:"latency_ms"`
}

// FinalState returns the last recorded lifecycle state.
func (a *Answer) FinalState() QueryState {
	if len(a.States) == 0 {
		return ""
	}
	return a.States[len(a.States)-1]
}
