package redis

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/blinderchief/visiolingua/internal/db"
	"github.com/blinderchief/visiolingua/internal/domain/search/filter"
)

// SearchKNN runs a KNN vector similarity search over q.Field via FT.SEARCH.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Field == "" {
		return nil, fmt.Errorf("vector field is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	filterStr := buildFilter(q.Filters)

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, q.Field)
	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		fields := append(slices.Clone(q.ReturnFields), "__vector_score")
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	if !s.valkey {
		args = append(args, "SORTBY", "__vector_score")
	}
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// SearchList returns filtered entries sorted by q.SortBy.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if s.valkey {
		return s.scanList(ctx, q)
	}

	queryStr := buildFilter(q.Filters)
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	if q.SortBy != "" {
		order := "DESC"
		if q.SortAsc {
			order = "ASC"
		}
		args = append(args, "SORTBY", q.SortBy, order)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseListResult(raw)
}

// scanList serves a list query from SCAN + HGETALL, filtering and sorting client-side.
// Keys without the sort field order after keys that have it.
func (s *Store) scanList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, indexToKeyPrefix(q.IndexName)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan for list: %w", err)
	}
	slices.Sort(keys) // deterministic ordering

	hashes, err := s.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch for list: %w", err)
	}

	entries := make([]db.SearchEntry, 0, len(keys))
	for i, h := range hashes {
		if len(h) == 0 || !q.Filters.Matches(h) {
			continue // deleted between SCAN and HGETALL, or filtered out
		}
		entries = append(entries, db.SearchEntry{Key: keys[i], Fields: h})
	}

	if q.SortBy != "" {
		slices.SortStableFunc(entries, func(a, b db.SearchEntry) int {
			c := cmp.Compare(sortValue(a, q.SortBy), sortValue(b, q.SortBy))
			if q.SortAsc {
				return c
			}
			return -c
		})
	}

	total := len(entries)
	if q.Offset >= total {
		return &db.SearchResult{Total: total}, nil
	}
	page := entries[q.Offset:min(q.Offset+q.Limit, total)]

	if len(q.ReturnFields) > 0 {
		for i := range page {
			page[i].Fields = project(page[i].Fields, q.ReturnFields)
		}
	}

	return &db.SearchResult{Total: total, Entries: page}, nil
}

func sortValue(e db.SearchEntry, field string) float64 {
	v, err := strconv.ParseFloat(e.Fields[field], 64)
	if err != nil {
		return math.Inf(-1)
	}
	return v
}

func project(fields map[string]string, keep []string) map[string]string {
	out := make(map[string]string, len(keep))
	for _, k := range keep {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

// indexToKeyPrefix converts an index name to a SCAN prefix.
// "visiolingua:content:idx" -> "visiolingua:content:"
func indexToKeyPrefix(index string) string {
	if strings.HasSuffix(index, ":idx") {
		return index[:len(index)-3]
	}
	return index + ":"
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	res, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}

	for i := range res.Entries {
		e := &res.Entries[i]
		if scoreStr, ok := e.Fields["__vector_score"]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				e.Score = 1.0 - d // cosine distance -> similarity
			}
			delete(e.Fields, "__vector_score")
		}
	}
	return res, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter query string.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(expr.Must())+len(expr.MustNot()))
	for _, cond := range expr.Must() {
		parts = append(parts, buildTagFilter(cond.Key(), cond.Match()))
	}
	for _, cond := range expr.MustNot() {
		parts = append(parts, "-"+buildTagFilter(cond.Key(), cond.Match()))
	}

	return strings.Join(parts, " ")
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
