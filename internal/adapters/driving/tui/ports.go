// Package tui provides an interactive terminal chat for concierge.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Answer routes and answers questions.
	Answer driving.AnswerService

	// Stats supplies popular questions for the welcome screen. Optional.
	Stats driving.StatsService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
