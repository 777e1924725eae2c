// Package decision turns a face distance reported by the encoder into a
// match/no-match verdict and a confidence score.
//
// Confidence is 1 - distance/ReferenceScale clamped to [0, 1]. ReferenceScale
// is fixed at 1.0 for every metric and threshold: it keeps the score
// monotonically decreasing in distance, equal to 1 at distance 0 and
// saturating at 0 for distances of 1.0 and above. Callers must not rely on
// any other property of the scale.
package decision

import (
	"errors"
	"fmt"
	"math"

	"face_verification/internal/models"
)

const ReferenceScale = 1.0

type Metric string

const (
	MetricCosine      Metric = "cosine"
	MetricEuclidean   Metric = "euclidean"
	MetricEuclideanL2 Metric = "euclidean_l2"
)

var ErrInvalidPolicy = errors.New("invalid decision policy")

// Policy is the process-wide decision configuration. It is built once at
// startup and only read afterwards.
type Policy struct {
	ModelName string  `json:"model_name"`
	Threshold float64 `json:"threshold"`
	Metric    Metric  `json:"distance_metric"`
}

func NewPolicy(modelName string, threshold float64, metric Metric) (Policy, error) {
	p := Policy{
		ModelName: modelName,
		Threshold: threshold,
		Metric:    metric,
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}

	return p, nil
}

func (p Policy) Validate() error {
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) || p.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be a positive number, got %v", ErrInvalidPolicy, p.Threshold)
	}

	switch p.Metric {
	case MetricCosine, MetricEuclidean, MetricEuclideanL2:
	default:
		return fmt.Errorf("%w: unknown distance metric %q", ErrInvalidPolicy, p.Metric)
	}

	return nil
}

type Decision struct {
	Result       models.Result
	Confidence   float64
	Distance     float64
	FaceDetected bool
}

// Decide applies the policy threshold to distance.
func (p Policy) Decide(distance float64) Decision {
	result, confidence := Decide(distance, p.Threshold)

	return Decision{
		Result:       result,
		Confidence:   confidence,
		Distance:     distance,
		FaceDetected: true,
	}
}

// NoFace is the verdict when the encoder found no face in at least one image.
func NoFace() Decision {
	return Decision{
		Result:     models.ResultNoMatch,
		Confidence: 0,
	}
}

// Decide is a match iff distance <= threshold, boundary included.
func Decide(distance, threshold float64) (models.Result, float64) {
	if math.IsNaN(distance) {
		return models.ResultNoMatch, 0
	}

	result := models.ResultNoMatch
	if distance <= threshold {
		result = models.ResultMatch
	}

	return result, Confidence(distance)
}

func Confidence(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}

	return clamp(1-distance/ReferenceScale, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
