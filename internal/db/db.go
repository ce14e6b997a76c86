// Package db defines the Redis-protocol store contract behind the candidate
// repository and the embedding cache.
package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces they use.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore holds content records as hashes.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// KVStore holds opaque values with expiry, such as cached embeddings.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager creates the FT index once per deployment.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs KNN and filtered listing queries over an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchList(ctx context.Context, q *ListQuery) (*SearchResult, error)
}
