package result

import "github.com/blinderchief/visiolingua/internal/domain/content"

// Result is a scored candidate: a record hit with the score it earned in one ranking pass.
// Dense scores are cosine similarity; hybrid scores are fused and only comparable within a pass.
type Result struct {
	id     string
	score  float64
	record content.Record
}

// New creates a scored candidate.
func New(id string, score float64, record content.Record) Result {
	return Result{id: id, score: score, record: record}
}

// ID returns the record identifier.
func (r Result) ID() string { return r.id }

// Score returns the relevance score.
func (r Result) Score() float64 { return r.score }

// Record returns the record payload.
func (r Result) Record() content.Record { return r.record }

// UserID returns the owner recorded in the payload.
func (r Result) UserID() string { return r.record.UserID() }

// Content returns the payload text (caption for images).
func (r Result) Content() string { return r.record.Content() }

// WithScore returns a copy carrying a different score.
func (r Result) WithScore(score float64) Result {
	return Result{id: r.id, score: score, record: r.record}
}

// WithRecord returns a copy carrying a different payload, e.g. a translated one.
func (r Result) WithRecord(record content.Record) Result {
	return Result{id: r.id, score: r.score, record: record}
}

// Scores extracts the score of every result in order.
func Scores(rs []Result) []float64 {
	out := make([]float64, len(rs))
	for i := range rs {
		out[i] = rs[i].score
	}
	return out
}
