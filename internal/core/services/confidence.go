package services

import "math"

// DistanceToConfidence maps an L2 distance to a confidence in (0, 1].
// Confidence is 1/(1+d): 1 for an exact match and strictly decreasing
// as the distance grows. Negative or NaN distances count as 0.
func DistanceToConfidence(distance float64) float64 {
	if math.IsNaN(distance) || distance < 0 {
		distance = 0
	}
	if math.IsInf(distance, 1) {
		return math.SmallestNonzeroFloat64
	}
	c := 1 / (1 + distance)
	if c == 0 {
		return math.SmallestNonzeroFloat64
	}
	return c
}

// MeanConfidence averages the confidence of the given distances.
// It is reported in audit events only and never drives acceptance.
func MeanConfidence(distances []float64) float64 {
	if len(distances) == 0 {
		return 0
	}
	var sum float64
	for _, d := range distances {
		sum += DistanceToConfidence(d)
	}
	return sum / float64(len(distances))
}
