package candidates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
	"github.com/blinderchief/visiolingua/internal/metrics"
)

// --- Mocks ---

type mockRepo struct {
	searchFn func(ctx context.Context, sp space.Space, vec []float32, limit int) ([]result.Result, error)
	listFn   func(ctx context.Context, userID string, kind content.Kind, limit int) ([]content.Record, error)
	getFn    func(ctx context.Context, id string) (content.Record, error)
	deleteFn func(ctx context.Context, userID string) (int, error)
}

func (m *mockRepo) Search(ctx context.Context, sp space.Space, vec []float32, limit int) ([]result.Result, error) {
	return m.searchFn(ctx, sp, vec, limit)
}

func (m *mockRepo) List(ctx context.Context, userID string, kind content.Kind, limit int) ([]content.Record, error) {
	return m.listFn(ctx, userID, kind, limit)
}

func (m *mockRepo) Get(ctx context.Context, id string) (content.Record, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return m.deleteFn(ctx, userID)
}

var errDown = errors.New("connection refused")

func textRecord(id string) content.Record {
	return content.Reconstruct(id, "u1", "en", "", time.Now(), content.Text{Body: "body " + id}, nil)
}

// --- Tests ---

func TestSearch_PassesThrough(t *testing.T) {
	c := New(&mockRepo{
		searchFn: func(_ context.Context, sp space.Space, _ []float32, limit int) ([]result.Result, error) {
			if sp != space.Text || limit != 30 {
				t.Errorf("unexpected args: %s %d", sp, limit)
			}
			return []result.Result{result.New("a", 0.9, textRecord("a"))}, nil
		},
	}, zap.NewNop())

	hits := c.Search(context.Background(), space.Text, []float32{1, 0}, 30)
	if len(hits) != 1 || hits[0].ID() != "a" {
		t.Fatalf("unexpected hits: %v", hits)
	}
}

func TestSearch_ZeroVectorSkipsStore(t *testing.T) {
	c := New(&mockRepo{
		searchFn: func(context.Context, space.Space, []float32, int) ([]result.Result, error) {
			t.Error("store must not be queried with a zero vector")
			return nil, nil
		},
	}, zap.NewNop())

	if hits := c.Search(context.Background(), space.Clip, make([]float32, 4), 30); hits != nil {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestSearch_DegradesOnFailure(t *testing.T) {
	before := testutil.ToFloat64(metrics.StoreDegradedTotal.WithLabelValues("search"))
	c := New(&mockRepo{
		searchFn: func(context.Context, space.Space, []float32, int) ([]result.Result, error) {
			return nil, errDown
		},
	}, zap.NewNop())

	if hits := c.Search(context.Background(), space.Text, []float32{1}, 30); len(hits) != 0 {
		t.Errorf("expected empty result, got %v", hits)
	}
	after := testutil.ToFloat64(metrics.StoreDegradedTotal.WithLabelValues("search"))
	if after-before != 1 {
		t.Errorf("expected degraded counter +1, got %v", after-before)
	}
}

func TestListUserItems(t *testing.T) {
	c := New(&mockRepo{
		listFn: func(_ context.Context, userID string, kind content.Kind, limit int) ([]content.Record, error) {
			if userID != "u1" || kind != content.KindImage || limit != 10 {
				t.Errorf("unexpected args: %s %s %d", userID, kind, limit)
			}
			return []content.Record{textRecord("a")}, nil
		},
	}, zap.NewNop())

	if recs := c.ListUserItems(context.Background(), "u1", content.KindImage, 10); len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
}

func TestListUserItems_DegradesOnFailure(t *testing.T) {
	c := New(&mockRepo{
		listFn: func(context.Context, string, content.Kind, int) ([]content.Record, error) {
			return nil, errDown
		},
	}, zap.NewNop())

	if recs := c.ListUserItems(context.Background(), "u1", "", 50); recs != nil {
		t.Errorf("expected nil, got %v", recs)
	}
}

func TestRetrieve(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantOK bool
	}{
		{"found", nil, true},
		{"not found", domain.ErrContentNotFound, false},
		{"store down", errDown, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(&mockRepo{
				getFn: func(_ context.Context, id string) (content.Record, error) {
					if tc.err != nil {
						return content.Record{}, tc.err
					}
					return textRecord(id), nil
				},
			}, zap.NewNop())

			rec, ok := c.Retrieve(context.Background(), "c1")
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && rec.ID() != "c1" {
				t.Errorf("unexpected record %q", rec.ID())
			}
		})
	}
}

func TestDeleteUserItems(t *testing.T) {
	c := New(&mockRepo{
		deleteFn: func(_ context.Context, userID string) (int, error) {
			if userID != "u1" {
				t.Errorf("unexpected user %q", userID)
			}
			return 7, nil
		},
	}, zap.NewNop())

	n, err := c.DeleteUserItems(context.Background(), "u1")
	if err != nil || n != 7 {
		t.Fatalf("got (%d, %v), want (7, nil)", n, err)
	}
}

func TestDeleteUserItems_PropagatesError(t *testing.T) {
	c := New(&mockRepo{
		deleteFn: func(context.Context, string) (int, error) { return 2, errDown },
	}, zap.NewNop())

	n, err := c.DeleteUserItems(context.Background(), "u1")
	if !errors.Is(err, errDown) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if n != 2 {
		t.Errorf("partial count lost: %d", n)
	}
}
