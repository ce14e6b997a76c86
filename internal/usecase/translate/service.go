// Package translate renders retrieved content in the requested language.
package translate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain/prompt"
)

// Generator is the retrying model client used for translation.
type Generator interface {
	Generate(ctx context.Context, op string, p prompt.Prompt) (string, error)
}

// Service translates text, falling back to the input on any failure.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

// New creates a translator. A nil gen disables translation.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Translate returns text rendered from one language into another.
// Same-language, empty or failed translations return text unchanged.
func (s *Service) Translate(ctx context.Context, text, from, to string) string {
	if s == nil || s.gen == nil || text == "" || from == "" || to == "" || strings.EqualFold(from, to) {
		return text
	}

	out, err := s.gen.Generate(ctx, "translate", prompt.Translate(from, to, text))
	if err != nil {
		s.logger.Warn("Translation failed, keeping original text",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
		return text
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return text
	}
	return out
}
