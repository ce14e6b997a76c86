// Package vector holds dense vector math shared by the rankers.
package vector

import "math"

// Epsilon guards cosine and normalization denominators against zero.
const Epsilon = 1e-8

// Cosine returns dot(a, b) / (|a||b| + Epsilon).
// Mismatched or empty vectors score 0; an all-zero vector scores 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + Epsilon)
}

// CosineAll scores every vector of a corpus against q, preserving order.
func CosineAll(corpus [][]float32, q []float32) []float64 {
	out := make([]float64, len(corpus))
	for i, v := range corpus {
		out[i] = Cosine(v, q)
	}
	return out
}

// MaxNormalize divides every score by max(scores) + Epsilon.
func MaxNormalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	peak := scores[0]
	for _, s := range scores[1:] {
		peak = max(peak, s)
	}
	for i, s := range scores {
		out[i] = s / (peak + Epsilon)
	}
	return out
}
