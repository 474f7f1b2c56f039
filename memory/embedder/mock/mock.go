// Package mock provides a deterministic Embedder for tests and local
// development. Equal texts always map to equal unit vectors, so the
// surprise filter and similarity scoring behave reproducibly without a
// real embedding service.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

const DefaultDimensions = 384

type Embedder struct {
	dimensions int
}

func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed derives a pseudo-random unit vector from the text's hash.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		// LCG stepped from the hash keeps the whole vector deterministic.
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(embedding), nil
}

func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
