// Package encoder talks to the external face recognition model. It turns an
// image into a face embedding and measures the distance between embeddings.
package encoder

import (
	"context"
)

// Encoder computes a face embedding for the image stored at path.
type Encoder interface {
	Encode(ctx context.Context, path string) (Detection, error)
}

// Detection is either Detected(embedding) or NotDetected. A missing face is
// an ordinary outcome, not an error.
type Detection struct {
	embedding []float32
	found     bool
}

func Detected(embedding []float32) Detection {
	return Detection{embedding: embedding, found: true}
}

func NotDetected() Detection {
	return Detection{}
}

// Embedding returns the embedding of the first detected face and whether a
// face was found at all.
func (d Detection) Embedding() ([]float32, bool) {
	return d.embedding, d.found
}

func (d Detection) Found() bool {
	return d.found
}
