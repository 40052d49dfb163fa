package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation indicates a query was rejected before classification.
	// Use errors.As with *ValidationError to get the user-facing message.
	ErrValidation = errors.New("query validation failed")

	// ErrEmbedding indicates the embedding function failed or timed out.
	ErrEmbedding = errors.New("embedding failed")

	// ErrClassification indicates the classifier failed or timed out.
	ErrClassification = errors.New("classification failed")

	// ErrIndexUnavailable indicates a vector index was never built or failed to load.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrDimensionMismatch indicates vectors of inconsistent dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrAllStrategiesExhausted indicates every strategy in the fallback chain
	// was attempted and at least one failed with an error.
	ErrAllStrategiesExhausted = errors.New("all strategies exhausted")

	// ErrUnsupportedType indicates an unknown normaliser, provider or strategy.
	ErrUnsupportedType = errors.New("unsupported type")
)

// ValidationError describes why a query was refused before routing.
type ValidationError struct {
	// Reason is a short machine-readable code (empty, gibberish, injection, ...).
	Reason string

	// Message is the text shown to the user.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ExhaustedError is returned when the fallback chain ends in an error.
// It carries the strategies that were attempted and the last underlying cause.
type ExhaustedError struct {
	Attempted []Strategy
	Cause     error
}

func (e *ExhaustedError) Error() string {
	names := make([]string, len(e.Attempted))
	for i, s := range e.Attempted {
		names[i] = s.String()
	}
	msg := fmt.Sprintf("%s after [%s]", ErrAllStrategiesExhausted.Error(), strings.Join(names, " -> "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the last cause.
func (e *ExhaustedError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAllStrategiesExhausted}
	}
	return []error{ErrAllStrategiesExhausted, e.Cause}
}
