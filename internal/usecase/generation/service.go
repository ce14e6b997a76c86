// Package generation repeats rate-limited model calls and turns exhausted
// failures into placeholder text.
package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/metrics"
	"github.com/blinderchief/visiolingua/internal/retry"
)

// Service wraps a Generator with a retry policy.
type Service struct {
	inner  Generator
	policy retry.Policy
	logger *zap.Logger
}

// New creates a retrying generator. policy.Retryable defaults to rate-limit classification.
func New(inner Generator, policy retry.Policy, logger *zap.Logger) *Service {
	if policy.Retryable == nil {
		policy.Retryable = domain.IsRateLimited
	}
	return &Service{inner: inner, policy: policy, logger: logger}
}

// Generate calls the model, repeating rate-limited attempts. op labels logs and metrics.
func (s *Service) Generate(ctx context.Context, op string, p prompt.Prompt) (string, error) {
	policy := s.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.GenerationRetriesTotal.WithLabelValues(op).Inc()
		s.logger.Warn("Generation rate limited, backing off",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	text, err := retry.Value(ctx, policy, func(ctx context.Context) (string, error) {
		return s.inner.Generate(ctx, p)
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", op, err)
	}
	return text, nil
}

// GenerateOr returns the model output, or a placeholder when the call fails.
// Exhausted rate limits yield prompt.TryAgainLater; other failures yield fallback.
// ok reports whether the text came from the model.
func (s *Service) GenerateOr(ctx context.Context, op string, p prompt.Prompt, fallback string) (text string, ok bool) {
	text, err := s.Generate(ctx, op, p)
	if err == nil {
		return text, true
	}

	s.logger.Warn("Generation failed, using placeholder",
		zap.String("operation", op),
		zap.Bool("rate_limited", domain.IsRateLimited(err)),
		zap.Error(err),
	)
	if domain.IsRateLimited(err) {
		return prompt.TryAgainLater, false
	}
	return fallback, false
}
