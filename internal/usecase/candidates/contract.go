package candidates

import (
	"context"

	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// Repository is the candidate store contract shared by every backend.
type Repository interface {
	Search(ctx context.Context, sp space.Space, vec []float32, limit int) ([]result.Result, error)
	List(ctx context.Context, userID string, kind content.Kind, limit int) ([]content.Record, error)
	Get(ctx context.Context, id string) (content.Record, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
