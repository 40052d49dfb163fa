// Package centroid provides a nearest-centroid query classifier. Each
// label is represented by the mean embedding of its example phrases; a
// query's label distribution is a softmax over negative distances to
// those centroids.
package centroid

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// Classifier assigns queries to the label with the nearest centroid.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	embedder    driven.EmbeddingService
	labels      []string
	centroids   [][]float64
	temperature float64
}

// New embeds every example in set and computes the label centroids.
func New(ctx context.Context, embedder driven.EmbeddingService, set LabelSet) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service is required", domain.ErrInvalidInput)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	temperature := set.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	c := &Classifier{
		embedder:    embedder,
		labels:      make([]string, 0, len(set.Labels)),
		centroids:   make([][]float64, 0, len(set.Labels)),
		temperature: temperature,
	}

	for _, l := range set.Labels {
		var examples []string
		for _, ex := range l.Examples {
			if ex = strings.TrimSpace(ex); ex != "" {
				examples = append(examples, ex)
			}
		}

		vecs, err := embedder.EmbedBatch(ctx, examples)
		if err != nil {
			return nil, fmt.Errorf("embed examples for %q: %w", l.Name, err)
		}
		centroid, err := mean(vecs)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", l.Name, err)
		}
		if len(c.centroids) > 0 && len(centroid) != len(c.centroids[0]) {
			return nil, fmt.Errorf("label %q: %w", l.Name, domain.ErrDimensionMismatch)
		}

		c.labels = append(c.labels, domain.NormaliseLabel(l.Name))
		c.centroids = append(c.centroids, centroid)
	}
	return c, nil
}

// Classify returns the full label distribution for text.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.ClassificationResult, error) {
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != len(c.centroids[0]) {
		return domain.ClassificationResult{}, fmt.Errorf("%w: query has %d dimensions, centroids have %d",
			domain.ErrDimensionMismatch, len(vec), len(c.centroids[0]))
	}

	logits := make([]float64, len(c.centroids))
	maxLogit := math.Inf(-1)
	for i, centroid := range c.centroids {
		logits[i] = -distance(vec, centroid) / c.temperature
		maxLogit = math.Max(maxLogit, logits[i])
	}

	var sum float64
	for i := range logits {
		logits[i] = math.Exp(logits[i] - maxLogit)
		sum += logits[i]
	}

	dist := make(map[string]float64, len(c.labels))
	for i, label := range c.labels {
		dist[label] = logits[i] / sum
	}
	return domain.NewClassificationResult(dist), nil
}

// Labels returns the label set in file order.
func (c *Classifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func mean(vecs [][]float32) ([]float64, error) {
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: no example vectors", domain.ErrInvalidInput)
	}
	dims := len(vecs[0])
	out := make([]float64, dims)
	for _, v := range vecs {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: example has %d dimensions, want %d", domain.ErrDimensionMismatch, len(v), dims)
		}
		for i, x := range v {
			out[i] += float64(x)
		}
	}
	for i := range out {
		out[i] /= float64(len(vecs))
	}
	return out, nil
}

func distance(a []float32, b []float64) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
