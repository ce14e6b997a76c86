package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API (e.g. Nebius, Jina).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return e.create(ctx, []string{text})
}

// EmbedImage implements domain.ImageEmbedder for multimodal models that accept
// base64 images as {"image": ...} inputs (CLIP-style endpoints).
func (e *Embedder) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	if len(image) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty image: %w", domain.ErrInvalidInput)
	}
	return e.create(ctx, []imageInput{{Image: base64.StdEncoding.EncodeToString(image)}})
}

type imageInput struct {
	Image string `json:"image"`
}

func (e *Embedder) create(ctx context.Context, input any) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     max(e.dimensions, 0),
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.fail("api_error")
		return domain.EmbeddingResult{}, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		e.fail("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		e.fail("dimension_mismatch")
		return domain.EmbeddingResult{}, fmt.Errorf("provider returned %d dimensions, configured %d: %w",
			len(vec), e.dimensions, domain.ErrEmbeddingProviderError)
	}

	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(time.Since(start).Seconds())
	if u := resp.Usage; u.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(u.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(u.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (e *Embedder) fail(reason string) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, reason).Inc()
	e.logger.Debug("embedding request failed", zap.String("provider", e.provider), zap.String("reason", reason))
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Rate limits (HTTP 429, quota exhaustion) wrap domain.ErrRateLimited;
// everything else wraps domain.ErrEmbeddingProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	return classifyAPIError("embedding", err, domain.ErrEmbeddingProviderError)
}

func classifyAPIError(what string, err error, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		wrap = rateLimitOr(reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("%s API error %d: %s: %w",
				what, reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("%s API error %d: %s: %w",
			what, reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		wrap = rateLimitOr(apiErr.HTTPStatusCode, apiErr.Message, wrap)
		return fmt.Errorf("%s API error %d: %s: %w",
			what, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request failed: %w: %w", what, err, wrap)
	}
	return fmt.Errorf("%s request failed: %w", what, wrap)
}

// rateLimitOr returns domain.ErrRateLimited for throttling responses and fallback otherwise.
func rateLimitOr(status int, message string, fallback error) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	m := strings.ToLower(message)
	if strings.Contains(m, "resource_exhausted") || strings.Contains(m, "resource exhausted") ||
		strings.Contains(m, "rate limit") || strings.Contains(m, "quota") {
		return domain.ErrRateLimited
	}
	return fallback
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
