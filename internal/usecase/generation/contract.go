package generation

import (
	"context"

	"github.com/blinderchief/visiolingua/internal/domain/prompt"
)

// Generator produces text from a prompt through a language model.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}
