package centroid

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/concierge/internal/core/domain"
)

// lookupEmbedder maps known texts to fixed vectors.
type lookupEmbedder struct {
	vectors  map[string][]float32
	embedErr error
	batchErr error
}

func (e *lookupEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func (e *lookupEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (e *lookupEmbedder) Dimensions() int              { return 2 }
func (e *lookupEmbedder) ModelName() string            { return "lookup" }
func (e *lookupEmbedder) Ping(context.Context) error   { return nil }
func (e *lookupEmbedder) Close() error                 { return nil }

func twoLabelSet() LabelSet {
	return LabelSet{
		Temperature: 1,
		Labels: []Label{
			{Name: "Left", Examples: []string{"l1", "l2"}},
			{Name: "right", Examples: []string{"r1", " "}},
		},
	}
}

func twoLabelEmbedder() *lookupEmbedder {
	return &lookupEmbedder{vectors: map[string][]float32{
		"l1": {-2, 0}, "l2": {0, 0}, // centroid (-1, 0)
		"r1":    {1, 0},
		"query": {1, 0},
	}}
}

func TestNew_Centroids(t *testing.T) {
	c, err := New(context.Background(), twoLabelEmbedder(), twoLabelSet())
	require.NoError(t, err)

	assert.Equal(t, []string{"left", "right"}, c.Labels())
	assert.Equal(t, []float64{-1, 0}, c.centroids[0])
	assert.Equal(t, []float64{1, 0}, c.centroids[1])
}

func TestClassify_Softmax(t *testing.T) {
	c, err := New(context.Background(), twoLabelEmbedder(), twoLabelSet())
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "query")
	require.NoError(t, err)

	// Distances 2 and 0 at temperature 1.
	wantRight := 1 / (1 + math.Exp(-2))
	assert.Equal(t, "right", got.Label)
	assert.InDelta(t, wantRight, got.Confidence, 1e-9)
	assert.InDelta(t, 1-wantRight, got.Distribution["left"], 1e-9)
	assert.NoError(t, got.Validate())
}

func TestClassify_TemperatureSharpens(t *testing.T) {
	set := twoLabelSet()
	warm, err := New(context.Background(), twoLabelEmbedder(), set)
	require.NoError(t, err)

	set.Temperature = 0.1
	cold, err := New(context.Background(), twoLabelEmbedder(), set)
	require.NoError(t, err)

	w, _ := warm.Classify(context.Background(), "query")
	c, _ := cold.Classify(context.Background(), "query")
	assert.Greater(t, c.Confidence, w.Confidence)
	assert.NoError(t, c.Validate())
}

func TestClassify_Equidistant(t *testing.T) {
	c, err := New(context.Background(), twoLabelEmbedder(), twoLabelSet())
	require.NoError(t, err)

	// The fallback vector (0,0) is 1 away from both centroids.
	got, err := c.Classify(context.Background(), "unknown")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	assert.Equal(t, "left", got.Label)
}

func TestClassify_EmbeddingError(t *testing.T) {
	emb := twoLabelEmbedder()
	c, err := New(context.Background(), emb, twoLabelSet())
	require.NoError(t, err)

	emb.embedErr = errors.New("offline")
	_, err = c.Classify(context.Background(), "query")
	assert.ErrorContains(t, err, "offline")
}

func TestClassify_DimensionMismatch(t *testing.T) {
	emb := twoLabelEmbedder()
	c, err := New(context.Background(), emb, twoLabelSet())
	require.NoError(t, err)

	emb.vectors["wide"] = []float32{1, 2, 3}
	_, err = c.Classify(context.Background(), "wide")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil, twoLabelSet())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(context.Background(), twoLabelEmbedder(), LabelSet{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	emb := twoLabelEmbedder()
	emb.batchErr = errors.New("batch failed")
	_, err = New(context.Background(), emb, twoLabelSet())
	assert.ErrorContains(t, err, "batch failed")

	emb = twoLabelEmbedder()
	emb.vectors["r1"] = []float32{1, 0, 0}
	_, err = New(context.Background(), emb, twoLabelSet())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestLabelSet_Validate(t *testing.T) {
	tests := []struct {
		name string
		set  LabelSet
	}{
		{"one label", LabelSet{Labels: []Label{{Name: "a", Examples: []string{"x"}}}}},
		{"negative temperature", LabelSet{Temperature: -1, Labels: twoLabelSet().Labels}},
		{"empty name", LabelSet{Labels: []Label{{Name: " ", Examples: []string{"x"}}, {Name: "b", Examples: []string{"y"}}}}},
		{"duplicate after normalising", LabelSet{Labels: []Label{{Name: "Campus Life", Examples: []string{"x"}}, {Name: "campus_life", Examples: []string{"y"}}}}},
		{"blank examples", LabelSet{Labels: []Label{{Name: "a", Examples: []string{" "}}, {Name: "b", Examples: []string{"y"}}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.set.Validate(), domain.ErrInvalidInput)
		})
	}
}

func TestParseLabelSet(t *testing.T) {
	data := []byte(`
temperature = 0.2

[[label]]
name = "admissions"
examples = ["How do I apply?"]

[[label]]
name = "financial"
examples = ["What is the fee?", "Any scholarships?"]
`)

	set, err := ParseLabelSet(data)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, set.Temperature, 1e-9)
	require.Len(t, set.Labels, 2)
	assert.Equal(t, "financial", set.Labels[1].Name)
	assert.Len(t, set.Labels[1].Examples, 2)

	_, err = ParseLabelSet([]byte("label = ["))
	assert.Error(t, err)
}

func TestDefaultLabelSet_WithHashingEmbedder(t *testing.T) {
	set := DefaultLabelSet()
	require.NoError(t, set.Validate())

	c, err := New(context.Background(), hashing.NewEmbeddingService(512), set)
	require.NoError(t, err)

	groups := domain.DefaultThresholds()
	for _, label := range c.Labels() {
		if label == "general" {
			assert.False(t, groups.IsDeterministicLabel(label) || groups.IsSimilarityLabel(label))
			continue
		}
		assert.True(t, groups.IsDeterministicLabel(label) || groups.IsSimilarityLabel(label), label)
	}

	got, err := c.Classify(context.Background(), "What is the tuition fee?")
	require.NoError(t, err)
	assert.Equal(t, "financial", got.Label)
	assert.NoError(t, got.Validate())
}
