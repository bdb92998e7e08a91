package domain

import (
	"context"
	"fmt"
)

// MaxCosineDistance is the radius for vector similarity search; candidates
// beyond this cosine distance are excluded by the store.
const MaxCosineDistance = 0.41

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prepends an instruction prefix before embedding.
// Document and query modes are two instances over the same provider.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates the instruction-prefix decorator.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends the instruction and delegates to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// MeanVector averages embedding vectors component-wise. Vectors whose length
// differs from the first entry's are skipped (logs predating a
// dimensionality change). Returns nil when nothing is averageable.
func MeanVector(vectors [][]float32) []float32 {
	var dim int
	for _, v := range vectors {
		if len(v) > 0 {
			dim = len(v)
			break
		}
	}
	if dim == 0 {
		return nil
	}

	sum := make([]float64, dim)
	n := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, f := range v {
			sum[i] += float64(f)
		}
		n++
	}
	if n == 0 {
		return nil
	}

	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(n))
	}
	return mean
}
