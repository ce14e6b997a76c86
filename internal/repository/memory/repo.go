// Package memory is an in-process candidate store for local runs and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
	"github.com/blinderchief/visiolingua/internal/domain/vector"
)

// Repo keeps records in a map and answers vector queries by brute force.
type Repo struct {
	mu      sync.RWMutex
	records map[string]content.Record
	order   []string
}

// New creates an empty in-memory repository.
func New() *Repo {
	return &Repo{records: make(map[string]content.Record)}
}

// EnsureIndex is a no-op.
func (r *Repo) EnsureIndex(context.Context) error { return nil }

// Ping always succeeds.
func (r *Repo) Ping(context.Context) error { return nil }

// Upsert stores rec, replacing any record with the same id.
func (r *Repo) Upsert(_ context.Context, rec content.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID()]; !ok {
		r.order = append(r.order, rec.ID())
	}
	r.records[rec.ID()] = rec
	return nil
}

// Get returns a record by id.
func (r *Repo) Get(_ context.Context, id string) (content.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return content.Record{}, domain.ErrContentNotFound
	}
	return rec, nil
}

// Search ranks every record holding a vector in sp by cosine similarity to vec.
func (r *Repo) Search(_ context.Context, sp space.Space, vec []float32, limit int) ([]result.Result, error) {
	r.mu.RLock()
	out := make([]result.Result, 0, len(r.records))
	for _, id := range r.order {
		rec := r.records[id]
		v := rec.Vector(sp)
		if len(v) == 0 {
			continue
		}
		out = append(out, result.New(id, vector.Cosine(vec, v), rec))
	}
	r.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b result.Result) int {
		return cmp.Compare(b.Score(), a.Score())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns a user's records newest first, optionally restricted to one kind.
func (r *Repo) List(_ context.Context, userID string, kind content.Kind, limit int) ([]content.Record, error) {
	r.mu.RLock()
	var recs []content.Record
	for _, id := range r.order {
		rec := r.records[id]
		if rec.UserID() != userID {
			continue
		}
		if kind != "" && rec.Kind() != kind {
			continue
		}
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	content.SortByRecency(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// DeleteByUser removes every record owned by userID and returns how many were removed.
func (r *Repo) DeleteByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	kept := r.order[:0]
	for _, id := range r.order {
		if r.records[id].UserID() == userID {
			delete(r.records, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return n, nil
}
