// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/concierge/internal/core/domain"
)

// AnswerReceived carries the outcome of one question back to the model.
type AnswerReceived struct {
	Query  string
	Answer *domain.Answer
	Err    error
}

// PopularLoaded carries the popular questions shown on the welcome screen.
type PopularLoaded struct {
	Queries []domain.QueryCount
	Err     error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
