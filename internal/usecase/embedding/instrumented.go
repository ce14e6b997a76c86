package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
)

// InstrumentedEmbedder wraps a vectorizer with request logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	space  string
	model  string
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, space, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		space:  space,
		model:  model,
		logger: logger,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("space", p.space),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("space", p.space),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// EmbedImage delegates to the inner embedder when it can vectorize images.
func (p *InstrumentedEmbedder) EmbedImage(
	ctx context.Context, image []byte,
) (domain.EmbeddingResult, error) {
	ie, ok := p.inner.(domain.ImageEmbedder)
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("%s embedder cannot embed images: %w",
			p.space, domain.ErrNotImplemented)
	}

	start := time.Now()

	result, err := ie.EmbedImage(ctx, image)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Image embedding request failed",
			zap.String("space", p.space),
			zap.String("model", p.model),
			zap.Int("image_bytes", len(image)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	p.logger.Debug("Image embedding request completed",
		zap.String("space", p.space),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
	)

	return result, nil
}
