package mcp

import (
	"net/http"

	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Answer routes and answers questions.
	Answer driving.AnswerService

	// Stats reports popular and unresolved questions. Optional.
	Stats driving.StatsService

	// Index describes the live snapshot. Optional.
	Index driving.IndexService

	// Metrics is mounted at /metrics in HTTP mode. Optional.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
