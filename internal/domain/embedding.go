package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageEmbedder vectorizes raw image bytes into the cross-modal space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, image []byte) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// ZeroEmbedder returns all-zero vectors of a fixed dimension.
// Stands in for the cross-modal space when it is disabled.
type ZeroEmbedder struct {
	dim int
}

// NewZeroEmbedder creates a ZeroEmbedder producing dim-sized vectors.
func NewZeroEmbedder(dim int) *ZeroEmbedder {
	return &ZeroEmbedder{dim: dim}
}

// Embed returns a zero vector.
func (z *ZeroEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	return EmbeddingResult{Embedding: make([]float32, z.dim)}, nil
}

// EmbedImage returns a zero vector.
func (z *ZeroEmbedder) EmbedImage(_ context.Context, _ []byte) (EmbeddingResult, error) {
	return EmbeddingResult{Embedding: make([]float32, z.dim)}, nil
}

// IsZeroVector reports whether every component of v is zero.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
