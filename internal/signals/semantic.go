// Package signals implements the independent relevance signals combined by
// the hybrid ranker. Every scorer returns a value in [0,1] and returns 0,
// never an error, for empty or degenerate input.
package signals

import "math"

// Semantic returns the cosine similarity of two embeddings clamped to [0,1].
// It returns 0 when either vector is empty or has zero norm, or when the
// lengths differ. Semantic(a, b) == Semantic(b, a).
func Semantic(a, b []float32) float64 {
	return clamp01(Cosine(a, b))
}

// Cosine returns the raw cosine similarity in [-1,1], with the same
// degenerate-input rules as Semantic.
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
