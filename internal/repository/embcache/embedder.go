package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/db"
	"github.com/blinderchief/visiolingua/internal/domain"
)

// DefaultTTL bounds how long a cached embedding lives.
const DefaultTTL = 7 * 24 * time.Hour

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options scopes cache keys. Namespace separates vectorizers sharing one store,
// e.g. "text" and "clip", so their vectors never collide.
type Options struct {
	KeyPrefix string
	Namespace string
	TTL       time.Duration
}

// CachedEmbedder caches text embeddings in a key-value store.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly
// with any other labels already curried.
func New(
	inner domain.Embedder,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		prefix:     fmt.Sprintf("%semb_cache:%s:", opts.KeyPrefix, opts.Namespace),
		ttl:        opts.TTL,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return c.cached(ctx, c.cacheKey(text), func(ctx context.Context) (domain.EmbeddingResult, error) {
		result, err := c.inner.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
		}
		return result, nil
	})
}

// EmbedImage caches image embeddings by content hash.
func (c *CachedEmbedder) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	ie, ok := c.inner.(domain.ImageEmbedder)
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("cached embedder cannot embed images: %w", domain.ErrNotImplemented)
	}
	h := sha256.Sum256(image)
	key := c.prefix + "img:" + hex.EncodeToString(h[:])
	return c.cached(ctx, key, func(ctx context.Context) (domain.EmbeddingResult, error) {
		result, err := ie.EmbedImage(ctx, image)
		if err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
		}
		return result, nil
	})
}

func (c *CachedEmbedder) cached(
	ctx context.Context, key string, miss func(context.Context) (domain.EmbeddingResult, error),
) (domain.EmbeddingResult, error) {
	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := miss(ctx)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	// zero vectors come from disabled spaces and are not worth a round trip
	if !domain.IsZeroVector(result.Embedding) {
		c.putToCache(ctx, key, result.Embedding)
	}
	return result, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
