// Package story writes stories grounded in a user's own uploads.
package story

import (
	"context"

	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/domain/search/request"
)

// Story is a generated story and the record it was grounded in, if any.
type Story struct {
	Text      string
	Lang      string
	Grounded  bool
	ContentID string
}

// Service selects grounding and generates the story.
type Service struct {
	selector *Selector
	gen      Generator
}

// New creates a story service.
func New(selector *Selector, gen Generator) *Service {
	return &Service{selector: selector, gen: gen}
}

// Generate writes a story for the request. It never fails: generation errors
// produce a placeholder reported as ungrounded.
func (s *Service) Generate(ctx context.Context, st request.Story) Story {
	d := s.selector.Select(ctx, st)

	text, ok := s.gen.GenerateOr(ctx, "story", prompt.Story(d, st.Lang()), prompt.StoryUnavailable(st.Theme()))
	if !ok || !d.Grounded() {
		return Story{Text: text, Lang: st.Lang()}
	}
	return Story{Text: text, Lang: st.Lang(), Grounded: true, ContentID: d.ContentID()}
}
