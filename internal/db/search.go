package db

import "github.com/blinderchief/visiolingua/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search over one vector field.
type KNNQuery struct {
	IndexName    string
	Field        string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for filtered, sorted listing without a vector.
type ListQuery struct {
	IndexName    string
	Filters      filter.Expression
	SortBy       string
	SortAsc      bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
