// Package vectors implements similarity math over embedding vectors.
package vectors

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1]. Mismatched
// dimensions, empty input and zero-norm vectors all yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	if dot == normA && dot == normB {
		// Identical vectors; sqrt rounding can land a few ULPs off 1
		return 1
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}
