// Package embedding provides vector embedding generation for text over
// pluggable hosted and local backends.
package embedding

import "math"

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Normalize scales the vector to unit L2 norm in place, so that the dot
// product of two normalized vectors is their cosine similarity. Providers
// normalize every vector they return; backend normalization guarantees are
// not relied on.
func (e Embedding) Normalize() Embedding {
	var sum float64
	for _, v := range e.Vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return e
	}
	for i := range e.Vector {
		e.Vector[i] = float32(float64(e.Vector[i]) / norm)
	}
	return e
}

// Dot returns the dot product of two vectors. For unit vectors this is the
// cosine similarity. Mismatched lengths score zero.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
