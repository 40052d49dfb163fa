package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Tolerances used when checking a ClassificationResult.
const (
	distributionSumTolerance = 1e-3
	confidenceMaxTolerance   = 1e-6
)

// ClassificationResult is a classifier verdict for one query.
// It is produced fresh per query and never persisted.
type ClassificationResult struct {
	// Label is the most probable label.
	Label string `json:"label"`

	// Confidence is the probability of Label, equal to max(Distribution).
	Confidence float64 `json:"confidence"`

	// Distribution holds a probability for every label in the label set.
	Distribution map[string]float64 `json:"distribution"`
}

// NewClassificationResult builds a result from a distribution, picking the
// highest-probability label. Ties are broken alphabetically so the result
// is deterministic.
func NewClassificationResult(distribution map[string]float64) ClassificationResult {
	labels := make([]string, 0, len(distribution))
	for label := range distribution {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var best string
	bestP := math.Inf(-1)
	for _, label := range labels {
		if p := distribution[label]; p > bestP {
			best, bestP = label, p
		}
	}
	if len(labels) == 0 {
		bestP = 0
	}

	return ClassificationResult{
		Label:        best,
		Confidence:   bestP,
		Distribution: distribution,
	}
}

// Validate checks the distribution invariants: confidence in [0,1],
// probabilities summing to one, and confidence equal to the maximum.
func (c ClassificationResult) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidInput)
	}
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidInput, c.Confidence)
	}
	if len(c.Distribution) == 0 {
		return fmt.Errorf("%w: empty distribution", ErrInvalidInput)
	}

	sum := 0.0
	maxP := math.Inf(-1)
	for _, p := range c.Distribution {
		sum += p
		maxP = math.Max(maxP, p)
	}
	if math.Abs(sum-1) > distributionSumTolerance {
		return fmt.Errorf("%w: distribution sums to %.4f", ErrInvalidInput, sum)
	}
	if math.Abs(maxP-c.Confidence) > confidenceMaxTolerance {
		return fmt.Errorf("%w: confidence %.4f is not the distribution maximum %.4f",
			ErrInvalidInput, c.Confidence, maxP)
	}
	return nil
}
