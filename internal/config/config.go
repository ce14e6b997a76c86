package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the visiolingua API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds candidate store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW settings for the content index.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding settings.
// Text is the same-language space, Clip the cross-modal one.
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Text      VectorizerConfig          `yaml:"text"`
	Clip      VectorizerConfig          `yaml:"clip"`
	Cache     bool                      `yaml:"cache"`
}

// ProviderConfig holds OpenAI-compatible provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Enabled             *bool  `yaml:"enabled"`
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// IsEnabled reports whether the vectorizer should call its provider.
// An unset flag means enabled.
func (v VectorizerConfig) IsEnabled() bool {
	return v.Enabled == nil || *v.Enabled
}

// GenerationConfig holds language model settings for answers, stories, captions and translation.
type GenerationConfig struct {
	Provider     string      `yaml:"provider"`
	Model        string      `yaml:"model"`
	MaxTokens    int         `yaml:"max_tokens"`
	Temperature  float32     `yaml:"temperature"`
	TimeoutSec   int         `yaml:"timeout_sec"`
	RateLimitRPS float64     `yaml:"rate_limit_rps"` // 0 = unlimited
	MaxImageSide int         `yaml:"max_image_side"`
	Retry        RetryConfig `yaml:"retry"`
	Translate    bool        `yaml:"translate"`
}

// RetryConfig holds the backoff schedule for rate-limited generation calls.
type RetryConfig struct {
	Attempts    int `yaml:"attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
}

// RetrievalConfig holds ranking constants and listing limits.
type RetrievalConfig struct {
	// MergeThreshold and HybridAlpha are pointers so an explicit 0 survives defaulting.
	MergeThreshold      *float64 `yaml:"merge_threshold"`
	MergeTopK           int      `yaml:"merge_top_k"`
	SearchLimit         int      `yaml:"search_limit"`
	HybridAlpha         *float64 `yaml:"hybrid_alpha"`
	HybridTopK          int      `yaml:"hybrid_top_k"`
	DegenerateThreshold float64  `yaml:"degenerate_threshold"`
	CorpusLimit         int      `yaml:"corpus_limit"`
	HistoryLimit        int      `yaml:"history_limit"`
	GroundingScanLimit  int      `yaml:"grounding_scan_limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// story generation may sleep through the whole backoff schedule
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = 20 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "visiolingua:"
	}
	if c.Embedding.Text.Dimensions <= 0 {
		c.Embedding.Text.Dimensions = 384
	}
	if c.Embedding.Clip.Dimensions <= 0 {
		c.Embedding.Clip.Dimensions = 512
	}
	c.Generation.applyDefaults()
	c.Retrieval.applyDefaults()
}

func (g *GenerationConfig) applyDefaults() {
	if g.Model == "" {
		g.Model = "gemini-2.0-flash"
	}
	if g.MaxTokens <= 0 {
		g.MaxTokens = 1024
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 60
	}
	if g.MaxImageSide <= 0 {
		g.MaxImageSide = 1024
	}
	if g.Retry.Attempts <= 0 {
		g.Retry.Attempts = 3
	}
	if g.Retry.BaseDelayMs <= 0 {
		g.Retry.BaseDelayMs = 2000
	}
}

func (r *RetrievalConfig) applyDefaults() {
	if r.MergeThreshold == nil {
		r.MergeThreshold = ptr(0.3)
	}
	if r.MergeTopK <= 0 {
		r.MergeTopK = 3
	}
	if r.SearchLimit <= 0 {
		r.SearchLimit = 30
	}
	if r.HybridAlpha == nil {
		r.HybridAlpha = ptr(0.6)
	}
	if r.HybridTopK <= 0 {
		r.HybridTopK = 5
	}
	if r.DegenerateThreshold <= 0 {
		r.DegenerateThreshold = 0.01
	}
	if r.CorpusLimit <= 0 {
		r.CorpusLimit = 200
	}
	if r.HistoryLimit <= 0 {
		r.HistoryLimit = 50
	}
	if r.GroundingScanLimit <= 0 {
		r.GroundingScanLimit = 10
	}
}

func ptr[T any](v T) *T { return &v }

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\", \"valkey\" or \"memory\", got %q", c.Database.Driver)
	}
	for name, v := range map[string]VectorizerConfig{"text": c.Embedding.Text, "clip": c.Embedding.Clip} {
		if !v.IsEnabled() || v.Provider == "" {
			continue
		}
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.%s.provider %q is not defined in embedding.providers", name, v.Provider)
		}
	}
	if c.Generation.Provider != "" {
		if _, ok := c.Embedding.Providers[c.Generation.Provider]; !ok {
			return fmt.Errorf("generation.provider %q is not defined in embedding.providers", c.Generation.Provider)
		}
	}
	if a := c.Retrieval.HybridAlpha; a != nil && (*a < 0 || *a > 1) {
		return fmt.Errorf("retrieval.hybrid_alpha must be within [0, 1], got %g", *a)
	}
	if t := c.Retrieval.MergeThreshold; t != nil && *t < 0 {
		return fmt.Errorf("retrieval.merge_threshold must not be negative, got %g", *t)
	}
	if c.Generation.RateLimitRPS < 0 {
		return fmt.Errorf("generation.rate_limit_rps must not be negative, got %g", c.Generation.RateLimitRPS)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and `go run` from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
