package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/metrics"
)

// jpegQuality is used when re-encoding images for vision requests.
const jpegQuality = 85

// Generator is a chat/vision language model using the OpenAI-compatible API.
type Generator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	maxSide     int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// GeneratorConfig holds the language model settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	// RateLimitRPS throttles outbound requests; 0 disables throttling.
	RateLimitRPS float64
	// MaxImageSide bounds the longer image side sent to the model; 0 sends images as is.
	MaxImageSide int
	Logger       *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	g := &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxSide:     cfg.MaxImageSide,
		logger:      cfg.Logger,
	}
	if cfg.RateLimitRPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), max(1, int(cfg.RateLimitRPS)))
	}
	return g
}

// Generate sends the prompt, with its image when present, and returns the model text.
// Throttling responses wrap domain.ErrRateLimited; other failures wrap domain.ErrGenerationProviderError.
func (g *Generator) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	kind := "text"
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if p.HasImage() {
		kind = "vision"
		dataURL, err := g.imageDataURL(p.Image)
		if err != nil {
			return "", err
		}
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: p.Text},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		}
	} else {
		msg.Content = p.Text
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for generation slot: %w", err)
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, kind, "error").Inc()
		cerr := classifyAPIError("generation", err, domain.ErrGenerationProviderError)
		g.logger.Warn("Generation request failed",
			zap.String("model", g.model),
			zap.String("kind", kind),
			zap.Duration("duration", duration),
			zap.Error(cerr),
		)
		return "", cerr
	}

	metrics.GenerationRequestDuration.WithLabelValues(g.model, kind).Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, kind, "error").Inc()
		return "", fmt.Errorf("empty generation response: %w", domain.ErrGenerationProviderError)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, kind, "error").Inc()
		return "", fmt.Errorf("blank generation (finish reason %q): %w",
			resp.Choices[0].FinishReason, domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, kind, "success").Inc()
	g.logger.Debug("Generation request completed",
		zap.String("model", g.model),
		zap.String("kind", kind),
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return text, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// imageDataURL decodes the image, shrinks it to maxSide and re-encodes it as a JPEG data URL.
func (g *Generator) imageDataURL(raw []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w: %w", domain.ErrInvalidInput, err)
	}
	if b := img.Bounds(); g.maxSide > 0 && (b.Dx() > g.maxSide || b.Dy() > g.maxSide) {
		img = imaging.Fit(img, g.maxSide, g.maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
