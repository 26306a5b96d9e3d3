// Package similarity scores pairs of speaker embeddings.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/voicematch/pkg/models"
)

// DefaultThreshold is the documented decision cutoff.
const DefaultThreshold = 0.80

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Both vectors must have the same dimension and a finite, non-zero norm.
func Cosine(a, b models.Embedding) (float64, error) {
	const op = "score"

	if len(a) != len(b) {
		return 0, models.Errorf(models.KindEmbedding, op, "embedding dimensions differ: %d vs %d", len(a), len(b))
	}
	if a.Degenerate() || b.Degenerate() {
		return 0, models.Errorf(models.KindDegenerateEmbedding, op,
			"audio produced an empty voice embedding (silent or too little speech)")
	}

	x, y := toFloat64(a), toFloat64(b)
	s := floats.Dot(x, y) / (floats.Norm(x, 2) * floats.Norm(y, 2))
	if math.IsNaN(s) {
		return 0, models.Errorf(models.KindDegenerateEmbedding, op, "similarity is undefined for these embeddings")
	}
	return math.Max(-1, math.Min(1, s)), nil
}

// Classify applies the threshold; a score equal to the threshold is a match.
func Classify(score, threshold float64) (bool, models.Conclusion) {
	if score >= threshold {
		return true, models.SamePerson
	}
	return false, models.DifferentPeople
}

// ValidThreshold reports whether t is a usable cosine threshold.
func ValidThreshold(t float64) bool {
	return !math.IsNaN(t) && t >= -1 && t <= 1
}

func toFloat64(e models.Embedding) []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = float64(v)
	}
	return out
}
