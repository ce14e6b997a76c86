package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// ClipEmbedder vectorizes both text and images into the cross-modal space.
type ClipEmbedder interface {
	domain.Embedder
	domain.ImageEmbedder
}

// Spaces vectorizes queries and documents into every known space.
// The text space is mandatory and its failures propagate. The clip space is
// auxiliary: its failures degrade to a zero vector, which searches skip.
type Spaces struct {
	textDoc   domain.Embedder
	textQuery domain.Embedder
	clip      ClipEmbedder
	clipDim   int
	logger    *zap.Logger
}

// NewSpaces creates a multi-space vectorizer. A nil textQuery reuses textDoc.
func NewSpaces(textDoc, textQuery domain.Embedder, clip ClipEmbedder, clipDim int, logger *zap.Logger) *Spaces {
	if textQuery == nil {
		textQuery = textDoc
	}
	return &Spaces{textDoc: textDoc, textQuery: textQuery, clip: clip, clipDim: clipDim, logger: logger}
}

// Query embeds query text into the text and clip spaces concurrently.
func (s *Spaces) Query(ctx context.Context, text string) (map[space.Space][]float32, error) {
	return s.both(ctx, s.textQuery, text, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return s.clip.Embed(ctx, text)
	})
}

// QueryText embeds query text into the text space only.
func (s *Spaces) QueryText(ctx context.Context, text string) ([]float32, error) {
	res, err := s.textQuery.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", space.Text, err)
	}
	return res.Embedding, nil
}

// Text embeds an uploaded text document into both spaces.
func (s *Spaces) Text(ctx context.Context, text string) (map[space.Space][]float32, error) {
	return s.both(ctx, s.textDoc, text, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return s.clip.Embed(ctx, text)
	})
}

// Image embeds an uploaded image: pixels into clip, caption into text.
func (s *Spaces) Image(ctx context.Context, image []byte, caption string) (map[space.Space][]float32, error) {
	return s.both(ctx, s.textDoc, caption, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return s.clip.EmbedImage(ctx, image)
	})
}

// QueryImage embeds an image query into the clip space only.
func (s *Spaces) QueryImage(ctx context.Context, image []byte) []float32 {
	res, err := s.clip.EmbedImage(ctx, image)
	if err != nil {
		return s.degradeClip(err)
	}
	return res.Embedding
}

func (s *Spaces) both(
	ctx context.Context, text domain.Embedder, input string,
	clip func(ctx context.Context) (domain.EmbeddingResult, error),
) (map[space.Space][]float32, error) {
	var textVec, clipVec []float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := text.Embed(gctx, input)
		if err != nil {
			return fmt.Errorf("embed %s: %w", space.Text, err)
		}
		textVec = res.Embedding
		return nil
	})
	g.Go(func() error {
		res, err := clip(gctx)
		if err != nil {
			clipVec = s.degradeClip(err)
			return nil
		}
		clipVec = res.Embedding
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped per space above
	}

	return map[space.Space][]float32{
		space.Text: textVec,
		space.Clip: clipVec,
	}, nil
}

func (s *Spaces) degradeClip(err error) []float32 {
	s.logger.Warn("Cross-modal embedding failed, using zero vector",
		zap.String("space", string(space.Clip)),
		zap.Error(err),
	)
	return make([]float32, s.clipDim)
}
