package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockProvider produces deterministic pseudo-embeddings derived from the
// input text. Identical texts always embed to identical vectors, which is
// what similarity tests need; no network is involved.
type MockProvider struct {
	dimension int
}

// NewMockProvider creates a mock provider with the given dimensionality.
func NewMockProvider(dimension int) *MockProvider {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockProvider{dimension: dimension}
}

func (p *MockProvider) Dimension() int {
	return p.dimension
}

func (p *MockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vectorFor(text)
	}
	return out, nil
}

func (p *MockProvider) vectorFor(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, p.dimension)
	var norm float64
	for i := range vec {
		// xorshift keeps the sequence reproducible per seed
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float32(int64(seed%2000)-1000) / 1000
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	// Unit-normalize so cosine distances behave like the real provider's.
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}
