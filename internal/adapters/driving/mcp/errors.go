// Package mcp provides an MCP (Model Context Protocol) server adapter for concierge.
// It lets AI assistants ask institutional questions and read usage statistics.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")

// ErrStatsUnavailable is returned by tools that need the stats service.
var ErrStatsUnavailable = errors.New("mcp: stats service not configured")
