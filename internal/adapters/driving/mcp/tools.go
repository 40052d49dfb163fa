package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// defaultTopQueries is used when top_queries is called without a limit.
const defaultTopQueries = 10

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the question to answer"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer       string              `json:"answer"`
	Strategy     string              `json:"strategy,omitempty"`
	Confidence   float64             `json:"confidence"`
	Reason       string              `json:"reason"`
	Refused      bool                `json:"refused"`
	Attributions []AttributionOutput `json:"attributions,omitempty"`
}

// AttributionOutput is one source span backing an answer.
type AttributionOutput struct {
	Source     string  `json:"source"`
	ChunkID    int     `json:"chunk_id"`
	Confidence float64 `json:"confidence"`
}

// TopQueriesInput is the input schema for the top_queries tool.
type TopQueriesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of queries to return (default 10)"`
}

// TopQueriesOutput is the output schema for the top_queries tool.
type TopQueriesOutput struct {
	Queries []QueryCountOutput `json:"queries"`
	Count   int                `json:"count"`
}

// QueryCountOutput is a query with how often it was asked.
type QueryCountOutput struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Answer a question about the institution. Answers come from curated rules, " +
			"a curated Q&A list or the document corpus; unanswerable questions are declined.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "top_queries",
		Description: "List the most frequently asked questions",
	}, s.handleTopQueries)
}

// handleAsk handles the ask tool invocation. Rejected input is reported
// as a declined answer rather than a tool error.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	ans, err := s.ports.Answer.Ask(ctx, input.Query)

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return nil, AskOutput{Answer: ve.Message, Reason: ve.Reason, Refused: true}, nil
	}
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:       ans.Text,
		Strategy:     string(ans.Strategy),
		Confidence:   ans.Confidence,
		Reason:       ans.Decision.Reason,
		Refused:      ans.Refused,
		Attributions: make([]AttributionOutput, len(ans.Attributions)),
	}
	for i, a := range ans.Attributions {
		output.Attributions[i] = AttributionOutput{
			Source:     a.Source,
			ChunkID:    a.ChunkID,
			Confidence: a.Confidence,
		}
	}

	return nil, output, nil
}

// handleTopQueries handles the top_queries tool invocation.
func (s *Server) handleTopQueries(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TopQueriesInput,
) (*mcp.CallToolResult, TopQueriesOutput, error) {
	if s.ports.Stats == nil {
		return nil, TopQueriesOutput{}, ErrStatsUnavailable
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultTopQueries
	}

	top, err := s.ports.Stats.TopQueries(ctx, limit)
	if err != nil {
		return nil, TopQueriesOutput{}, err
	}

	output := TopQueriesOutput{
		Queries: make([]QueryCountOutput, len(top)),
		Count:   len(top),
	}
	for i, q := range top {
		output.Queries[i] = QueryCountOutput{Query: q.Query, Count: q.Count}
	}

	return nil, output, nil
}
