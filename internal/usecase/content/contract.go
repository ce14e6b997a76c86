package content

import (
	"context"

	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// Repository persists records.
type Repository interface {
	Upsert(ctx context.Context, rec domcontent.Record) error
}

// Candidates lists and deletes a user's records.
type Candidates interface {
	ListUserItems(ctx context.Context, userID string, kind domcontent.Kind, limit int) []domcontent.Record
	DeleteUserItems(ctx context.Context, userID string) (int, error)
}

// Vectorizer embeds uploads into every space.
type Vectorizer interface {
	Text(ctx context.Context, text string) (map[space.Space][]float32, error)
	Image(ctx context.Context, image []byte, caption string) (map[space.Space][]float32, error)
}

// Generator answers prompts, substituting placeholder text on failure.
type Generator interface {
	GenerateOr(ctx context.Context, op string, p prompt.Prompt, fallback string) (string, bool)
}
