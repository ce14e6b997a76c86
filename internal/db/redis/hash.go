package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/blinderchief/visiolingua/internal/db"
)

// scanBatch is the COUNT hint per SCAN round.
const scanBatch = 100

// HSet writes a content record hash. Empty field sets are rejected before a round trip.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("%s has no fields", key)}
	}
	b := s.b().Hset().Key(key).FieldValue()
	for f, v := range fields {
		b = b.FieldValue(f, v)
	}
	if err := s.do(ctx, b.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGetAll reads a whole hash; an absent key is db.ErrKeyNotFound.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	switch {
	case err != nil:
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	case len(fields) == 0:
		return nil, db.ErrKeyNotFound
	}
	return fields, nil
}

// HGetAllMulti pipelines HGETALL over keys. Position i of the result belongs to keys[i];
// a key removed in the meantime yields an empty map.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, s.b().Hgetall().Key(k).Build())
	}

	out := make([]map[string]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		fields, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("%s: %w", keys[i], err)}
		}
		out[i] = fields
	}
	return out, nil
}

// DelMulti removes keys in one DEL and reports how many existed.
func (s *Store) DelMulti(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.do(ctx, s.b().Del().Key(keys...).Build()).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpDel, Err: err}
	}
	return int(n), nil
}

// Scan collects every key matching pattern, following the cursor until it wraps to 0.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for first := true; first || cursor != 0; first = false {
		entry, err := s.do(ctx, s.b().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
	}
	return keys, nil
}
