package embedding

import (
	"errors"
	"math"
)

// ErrDimensionMismatch indicates two vectors of different lengths were
// compared. This points at a model or version inconsistency between the
// querying vector and a stored candidate.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Normalize scales a vector to unit L2 length. It is idempotent: normalizing
// an already unit-length vector returns an equal vector. Zero vectors are
// returned unchanged since they carry no direction to preserve.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// For unit-normalized vectors this equals their dot product.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, ErrDimensionMismatch
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity, nil
}

// Similar reports whether two vectors have cosine similarity at or above
// threshold. This is the inclusive comparator used by direct comparison;
// the candidate pool scan uses a strict comparison instead.
func Similar(a, b []float32, threshold float64) (bool, error) {
	similarity, err := CosineSimilarity(a, b)
	if err != nil {
		return false, err
	}
	return similarity >= threshold, nil
}
