package story

import (
	"context"

	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
)

// Candidates reads a user's records. Reads degrade to empty results.
type Candidates interface {
	Retrieve(ctx context.Context, id string) (content.Record, bool)
	ListUserItems(ctx context.Context, userID string, kind content.Kind, limit int) []content.Record
}

// Generator answers prompts, substituting placeholder text on failure.
type Generator interface {
	GenerateOr(ctx context.Context, op string, p prompt.Prompt, fallback string) (string, bool)
}
