package decision

import (
	"math"
	"testing"

	"face_verification/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		distance   float64
		threshold  float64
		result     models.Result
		confidence float64
	}{
		{"identical", 0, 0.4, models.ResultMatch, 1},
		{"close", 0.1, 0.4, models.ResultMatch, 0.9},
		{"boundary is inclusive", 0.4, 0.4, models.ResultMatch, 0.6},
		{"just above threshold", 0.4000001, 0.4, models.ResultNoMatch, 0.5999999},
		{"far", 0.9, 0.4, models.ResultNoMatch, 0.1},
		{"saturates at zero", 1.7, 0.4, models.ResultNoMatch, 0},
		{"negative distance clamps to one", -0.2, 0.4, models.ResultMatch, 1},
		{"NaN is never a match", math.NaN(), 0.4, models.ResultNoMatch, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, confidence := Decide(tc.distance, tc.threshold)
			assert.Equal(t, tc.result, result)
			assert.InDelta(t, tc.confidence, confidence, 1e-9)
		})
	}
}

func TestConfidenceIsMonotoneAndBounded(t *testing.T) {
	prev := math.Inf(1)

	for d := -0.5; d <= 3.0; d += 0.01 {
		c := Confidence(d)

		require.GreaterOrEqual(t, c, 0.0, "distance %v", d)
		require.LessOrEqual(t, c, 1.0, "distance %v", d)
		require.LessOrEqual(t, c, prev, "confidence increased at distance %v", d)

		prev = c
	}
}

func TestNoFace(t *testing.T) {
	d := NoFace()

	assert.Equal(t, models.ResultNoMatch, d.Result)
	assert.Zero(t, d.Confidence)
	assert.False(t, d.FaceDetected)
}

func TestPolicy(t *testing.T) {
	p, err := NewPolicy("Facenet512", 0.4, MetricCosine)
	require.NoError(t, err)

	d := p.Decide(0.1)
	assert.Equal(t, models.ResultMatch, d.Result)
	assert.True(t, d.FaceDetected)
	assert.Greater(t, d.Confidence, 0.5)
	assert.LessOrEqual(t, d.Confidence, 1.0)
	assert.InDelta(t, 0.1, d.Distance, 1e-12)
}

func TestNewPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		metric    Metric
	}{
		{"zero threshold", 0, MetricCosine},
		{"negative threshold", -1, MetricCosine},
		{"NaN threshold", math.NaN(), MetricCosine},
		{"infinite threshold", math.Inf(1), MetricCosine},
		{"unknown metric", 0.4, Metric("manhattan")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPolicy("m", tc.threshold, tc.metric)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}
