package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blinderchief/visiolingua/internal/db"
	"github.com/blinderchief/visiolingua/internal/domain"
	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/search/filter"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// deletePage is the number of keys fetched and removed per round of DeleteByUser.
const deletePage = 500

// store is the consumer interface for content records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Ping(ctx context.Context) error
}

// Options configures key layout and the vector index.
type Options struct {
	KeyPrefix   string
	ClipDim     int
	TextDim     int
	M           int
	EFConstruct int
}

func (o Options) dim(sp space.Space) int {
	if sp == space.Clip {
		return o.ClipDim
	}
	return o.TextDim
}

// Repo stores content records as hashes under one FT index.
type Repo struct {
	store store
	opts  Options
}

// New creates a content repository.
func New(s store, opts Options) *Repo {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "visiolingua:"
	}
	if opts.ClipDim <= 0 {
		opts.ClipDim = 512
	}
	if opts.TextDim <= 0 {
		opts.TextDim = 384
	}
	return &Repo{store: s, opts: opts}
}

// EnsureIndex creates the content index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName(), err)
	}
	if exists {
		return nil
	}

	def, err := r.buildIndex()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Upsert writes a record, replacing any previous fields under the same id.
func (r *Repo) Upsert(ctx context.Context, rec domcontent.Record) error {
	key := r.recordKey(rec.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(rec)); err != nil {
		return storeErr("hset "+key, err)
	}
	return nil
}

// Get returns a record by id.
func (r *Repo) Get(ctx context.Context, id string) (domcontent.Record, error) {
	key := r.recordKey(id)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcontent.Record{}, domain.ErrContentNotFound
		}
		return domcontent.Record{}, storeErr("hgetall "+key, err)
	}
	return parseHashFields(id, fields), nil
}

// Search returns the nearest records to vec in one space, most similar first.
// Results are not filtered by user.
func (r *Repo) Search(ctx context.Context, sp space.Space, vec []float32, limit int) ([]result.Result, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Field:        sp.Field(),
		Vector:       vec,
		K:            limit,
		ReturnFields: payloadFields,
	})
	if err != nil {
		return nil, storeErr("search knn "+string(sp), err)
	}
	if res == nil {
		return nil, nil
	}

	out := make([]result.Result, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := r.extractID(e.Key)
		out = append(out, result.New(id, e.Score, parseHashFields(id, e.Fields)))
	}
	return out, nil
}

// List returns a user's records newest first, optionally restricted to one kind.
func (r *Repo) List(
	ctx context.Context, userID string, kind domcontent.Kind, limit int,
) ([]domcontent.Record, error) {
	expr, err := filter.MustMatch(fieldUserID, userID, fieldKind, string(kind))
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}

	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: r.indexName(),
		Filters:   expr,
		SortBy:    fieldTimestamp,
		Limit:     limit,
	})
	if err != nil {
		return nil, storeErr("search list "+userID, err)
	}
	if res == nil {
		return nil, nil
	}

	recs := make([]domcontent.Record, 0, len(res.Entries))
	for _, e := range res.Entries {
		recs = append(recs, parseHashFields(r.extractID(e.Key), e.Fields))
	}
	domcontent.SortByRecency(recs)
	return recs, nil
}

// DeleteByUser removes every record owned by userID and returns how many were removed.
func (r *Repo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	expr, err := filter.MustMatch(fieldUserID, userID)
	if err != nil {
		return 0, fmt.Errorf("build filter: %w", err)
	}

	total := 0
	for {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.indexName(),
			Filters:      expr,
			SortBy:       fieldTimestamp,
			Limit:        deletePage,
			ReturnFields: []string{fieldUserID},
		})
		if err != nil {
			return total, storeErr("search list "+userID, err)
		}
		if res == nil || len(res.Entries) == 0 {
			return total, nil
		}

		keys := make([]string, len(res.Entries))
		for i, e := range res.Entries {
			keys[i] = e.Key
		}
		n, err := r.store.DelMulti(ctx, keys)
		if err != nil {
			return total, storeErr(fmt.Sprintf("del %d keys", len(keys)), err)
		}
		total += n

		// a short page is the last one; zero removals means the index is lagging
		if len(res.Entries) < deletePage || n == 0 {
			return total, nil
		}
	}
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// storeErr marks a failed store round trip as ErrStoreUnavailable, keeping the cause.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func (r *Repo) keyPrefix() string {
	return r.opts.KeyPrefix + "content:"
}

func (r *Repo) recordKey(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) indexName() string {
	return r.opts.KeyPrefix + "content:idx"
}

func (r *Repo) extractID(key string) string {
	return strings.TrimPrefix(key, r.keyPrefix())
}
