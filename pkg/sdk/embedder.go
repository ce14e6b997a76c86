package visiolingua

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ClipEmbedder embeds text and images into one cross-modal space.
type ClipEmbedder interface {
	Embedder
	EmbedImage(ctx context.Context, image []byte) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Prompt is a model instruction, optionally conditioned on an image.
type Prompt struct {
	Text  string
	Image []byte
}

// Generator answers prompts. Errors wrapping ErrRateLimited are retried
// with backoff; anything else degrades to placeholder text.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// embedderAdapter wraps a public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return toDomainResult(r), nil
}

// clipAdapter wraps a public ClipEmbedder to satisfy the cross-modal contract.
type clipAdapter struct {
	embedderAdapter
	inner ClipEmbedder
}

func newClipAdapter(inner ClipEmbedder) *clipAdapter {
	return &clipAdapter{embedderAdapter: embedderAdapter{inner: inner}, inner: inner}
}

func (a *clipAdapter) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	r, err := a.inner.EmbedImage(ctx, image)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}
	return toDomainResult(r), nil
}

func toDomainResult(r EmbeddingResult) domain.EmbeddingResult {
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}
}

// generatorAdapter wraps a public Generator to satisfy the generation contract.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	out, err := a.inner.Generate(ctx, Prompt{Text: p.Text, Image: p.Image})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"visiolingua: embedder not configured (use WithEmbedder): %w", domain.ErrEmbeddingProviderError,
	)
}

// noopGenerator fails every call, so callers fall back to placeholders.
type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, _ prompt.Prompt) (string, error) {
	return "", errors.New("visiolingua: generator not configured (use WithGenerator)")
}
