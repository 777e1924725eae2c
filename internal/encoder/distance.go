package encoder

import (
	"errors"
	"fmt"
	"math"

	"face_verification/internal/decision"
)

var ErrDimensionMismatch = errors.New("embedding dimensions differ")

// Distance measures the dissimilarity of two embeddings with the given metric.
// Lower means more similar.
func Distance(metric decision.Metric, a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	switch metric {
	case decision.MetricCosine:
		return CosineDistance(a, b), nil
	case decision.MetricEuclidean:
		return EuclideanDistance(a, b), nil
	case decision.MetricEuclideanL2:
		return EuclideanDistance(l2Normalize(a), l2Normalize(b)), nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", metric)
	}
}

// CosineDistance returns 1 - cosine similarity, in [0, 2].
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// floating point drift
	similarity = math.Max(-1, math.Min(1, similarity))

	return 1 - similarity
}

func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum)
}

func l2Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}

	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}

	return out
}
