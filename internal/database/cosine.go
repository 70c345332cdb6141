package database

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when two embeddings cannot be compared.
var ErrDimensionMismatch = errors.New("embedding dimensions differ")

// DistanceTo returns the cosine distance (pgvector's <=> operator) to other,
// in [0,2]. A zero vector is maximally distant from everything.
func (e StoredEmbedding) DistanceTo(other StoredEmbedding) (float64, error) {
	a, b := e.Embedding, other.Embedding
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrDimensionMismatch
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 2, nil
	}
	cos := max(-1, min(1, dot/math.Sqrt(na*nb)))
	return 1 - cos, nil
}
