package visiolingua

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "valkey", "redis" or "memory"
	addrs     []string
	password  string
	keyPrefix string

	embedder     Embedder
	textDim      int
	clipEmbedder ClipEmbedder
	clipDim      int
	generator    Generator

	retryAttempts  int
	retryBaseDelay time.Duration
	retrieval      Retrieval

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps records in process memory. Nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix namespaces every key the client writes. Default: "visiolingua:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets the text-space embedding provider and its dimension.
// Required: uploads and text queries fail without it.
func WithEmbedder(e Embedder, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.textDim = dim
	})
}

// WithClipEmbedder sets the cross-modal provider and its dimension.
// Without it the clip space holds zero vectors and is never searched.
func WithClipEmbedder(e ClipEmbedder, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.clipEmbedder = e
		c.clipDim = dim
	})
}

// WithGenerator sets the language model used for answers, captions,
// translation and stories. Without it every generation is a placeholder.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithRetry sets the backoff schedule for rate-limited generation.
// Defaults: 3 attempts, 2s base delay doubling per attempt.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryAttempts = attempts
		c.retryBaseDelay = baseDelay
	})
}

// WithRetrieval overrides ranking constants. Zero fields keep their defaults.
func WithRetrieval(r Retrieval) Option {
	return optionFunc(func(c *clientConfig) {
		c.retrieval = r
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
