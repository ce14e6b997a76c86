package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/db"
	"github.com/blinderchief/visiolingua/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type mockImageEmbedder struct {
	mockEmbedder
	imageCalls int
}

func (m *mockImageEmbedder) EmbedImage(_ context.Context, _ []byte) (domain.EmbeddingResult, error) {
	m.imageCalls++
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, Options{KeyPrefix: "vl:", Namespace: "text"}, nil, zap.NewNop())
	return ce, ms
}
