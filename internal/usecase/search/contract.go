package search

import (
	"context"

	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// Candidates reads from the candidate store. Reads degrade to empty results.
type Candidates interface {
	Search(ctx context.Context, sp space.Space, vec []float32, limit int) []result.Result
	ListUserItems(ctx context.Context, userID string, kind content.Kind, limit int) []content.Record
}

// Vectorizer embeds queries into the vector spaces.
type Vectorizer interface {
	Query(ctx context.Context, text string) (map[space.Space][]float32, error)
	QueryText(ctx context.Context, text string) ([]float32, error)
	QueryImage(ctx context.Context, image []byte) []float32
}

// Generator answers prompts, substituting placeholder text on failure.
type Generator interface {
	GenerateOr(ctx context.Context, op string, p prompt.Prompt, fallback string) (string, bool)
}

// Translator renders text in another language, returning it unchanged on failure.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
}
