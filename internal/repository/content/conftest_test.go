package content

import (
	"context"
	"testing"
	"time"

	"github.com/blinderchief/visiolingua/internal/db"
	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	delMultiFn    func(ctx context.Context, keys []string) (int, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	pingFn        func(ctx context.Context) error
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) DelMulti(ctx context.Context, keys []string) (int, error) {
	if m.delMultiFn != nil {
		return m.delMultiFn(ctx, keys)
	}
	return len(keys), nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Options{KeyPrefix: "vl:", ClipDim: 4, TextDim: 3, M: 16, EFConstruct: 200})
	return repo, ms
}

func testImageRecord(t *testing.T) domcontent.Record {
	t.Helper()
	rec, err := domcontent.New(
		"c1", "u1", "fr",
		time.UnixMilli(1_700_000_000_123).UTC(),
		domcontent.Image{Caption: "un vélo rouge", Bytes: []byte{0x89, 'P', 'N', 'G', 0}},
		map[space.Space][]float32{
			space.Clip: {0.5, -0.25, 0, 1},
			space.Text: {0.1, 0.2, 0.3},
		},
	)
	if err != nil {
		t.Fatalf("build record: %v", err)
	}
	return rec.WithOriginalName("bike.png")
}
