// Package candidates fronts the candidate store and decides, once per call,
// whether a store failure degrades to an empty answer or reaches the caller.
package candidates

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
	"github.com/blinderchief/visiolingua/internal/metrics"
)

// Client reads and deletes candidates. Reads never fail.
type Client struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a candidate client.
func New(repo Repository, logger *zap.Logger) *Client {
	return &Client{repo: repo, logger: logger}
}

// Search returns hits in one space ordered by descending similarity.
// The store does not filter by user. An all-zero query vector searches nothing.
func (c *Client) Search(ctx context.Context, sp space.Space, vec []float32, limit int) []result.Result {
	if domain.IsZeroVector(vec) {
		return nil
	}
	hits, err := c.repo.Search(ctx, sp, vec, limit)
	if err != nil {
		c.degrade("search", err, zap.String("space", string(sp)))
		return nil
	}
	return hits
}

// ListUserItems returns a user's records, newest first. An empty kind lists every kind.
func (c *Client) ListUserItems(ctx context.Context, userID string, kind content.Kind, limit int) []content.Record {
	recs, err := c.repo.List(ctx, userID, kind, limit)
	if err != nil {
		c.degrade("list", err, zap.String("user_id", userID))
		return nil
	}
	return recs
}

// Retrieve fetches one record. Missing records and store failures both report false.
func (c *Client) Retrieve(ctx context.Context, id string) (content.Record, bool) {
	rec, err := c.repo.Get(ctx, id)
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, domain.ErrContentNotFound):
		return content.Record{}, false
	default:
		c.degrade("retrieve", err, zap.String("content_id", id))
		return content.Record{}, false
	}
}

// DeleteUserItems removes every record of a user and returns how many were removed.
func (c *Client) DeleteUserItems(ctx context.Context, userID string) (int, error) {
	n, err := c.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return n, fmt.Errorf("delete user items: %w", err)
	}
	return n, nil
}

func (c *Client) degrade(op string, err error, fields ...zap.Field) {
	metrics.StoreDegradedTotal.WithLabelValues(op).Inc()
	c.logger.Warn("Candidate store unavailable, returning empty result",
		append(fields, zap.String("op", op), zap.Error(err))...,
	)
}
