package visiolingua

import "time"

// QueryMode selects the ranking strategy of a text query.
type QueryMode string

// Query mode constants.
const (
	// ModeDense searches both vector spaces and merges the hits.
	ModeDense QueryMode = "dense"
	// ModeHybrid fuses BM25 and cosine scores over the user's whole corpus.
	ModeHybrid QueryMode = "hybrid"
)

// Upload is one text or image document. File takes precedence over Text;
// files that do not decode as images are stored as text.
type Upload struct {
	UserID   string
	Lang     string
	Text     string
	File     []byte
	FileName string
}

// Query is a text retrieval request.
type Query struct {
	UserID string
	Text   string
	Lang   string
	Mode   QueryMode
}

// ImageQuery searches the cross-modal space with an image.
type ImageQuery struct {
	UserID   string
	Image    []byte
	Lang     string
	Question string
}

// Result is one ranked record.
type Result struct {
	ID           string
	UserID       string
	Type         string // "image" or "text"
	Lang         string
	Content      string
	Score        float64
	Image        []byte
	Timestamp    time.Time
	OriginalName string
}

// Metrics summarizes one ranking pass.
type Metrics struct {
	CosineAvg float64
	BLEU      float64
	LatencyMs int64
	Hybrid    bool
}

// Answer is the ranked results plus the generated answer.
// Hint is set when there was nothing to rank.
type Answer struct {
	Results    []Result
	Generation string
	Metrics    Metrics
	Hint       string
}

// HistoryItem is one record in a user's history, newest first.
type HistoryItem struct {
	ID           string
	Type         string
	Lang         string
	Timestamp    time.Time
	OriginalName string
}

// StoryRequest asks for a story on a theme. ContentID pins the grounding
// record; it is ignored unless the user owns it.
type StoryRequest struct {
	UserID    string
	Theme     string
	Lang      string
	ContentID string
}

// Story is a generated story and the record it was grounded on, if any.
type Story struct {
	Text      string
	Lang      string
	Grounded  bool
	ContentID string
}

// Retrieval overrides ranking constants. Zero fields keep their defaults,
// except MergeThreshold and HybridAlpha where only nil does: 0 is a valid setting for both.
type Retrieval struct {
	MergeThreshold      *float64
	MergeTopK           int
	SearchLimit         int
	HybridAlpha         *float64
	HybridTopK          int
	DegenerateThreshold float64
	CorpusLimit         int
	GroundingScanLimit  int
}

// Float returns a pointer to v, for the optional Retrieval fields.
func Float(v float64) *float64 { return &v }

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
