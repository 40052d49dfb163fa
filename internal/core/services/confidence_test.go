package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceToConfidence(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"exact match", 0, 1},
		{"unit distance", 1, 0.5},
		{"three", 3, 0.25},
		{"negative clamps to zero", -2, 1},
		{"NaN clamps to zero", math.NaN(), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceToConfidence(tt.distance), 1e-12)
		})
	}
}

func TestDistanceToConfidence_StaysInUnitInterval(t *testing.T) {
	for _, d := range []float64{0, 1e-9, 0.5, 10, 1e12, 1e308, math.Inf(1)} {
		c := DistanceToConfidence(d)
		assert.Greater(t, c, 0.0, "distance %v", d)
		assert.LessOrEqual(t, c, 1.0, "distance %v", d)
	}
}

func TestDistanceToConfidence_Monotonic(t *testing.T) {
	prev := DistanceToConfidence(0)
	for d := 0.01; d < 50; d += 0.37 {
		c := DistanceToConfidence(d)
		assert.Less(t, c, prev, "distance %v", d)
		prev = c
	}
}

func TestMeanConfidence(t *testing.T) {
	assert.Zero(t, MeanConfidence(nil))
	assert.InDelta(t, 0.75, MeanConfidence([]float64{0, 1}), 1e-12)
}
