package search

import (
	"slices"

	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/lexical"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
	"github.com/blinderchief/visiolingua/internal/domain/vector"
)

// Hybrid ranker defaults.
const (
	DefaultHybridAlpha         = 0.6
	DefaultHybridTopK          = 5
	DefaultDegenerateThreshold = 0.01
)

// HybridRanker ranks a user's corpus by BM25 and cosine similarity fused together.
type HybridRanker struct {
	// Alpha weighs cosine against normalized BM25, in [0, 1].
	Alpha float64
	TopK  int
	// DegenerateThreshold is the cosine floor used when no text yields tokens.
	DegenerateThreshold float64
}

// Rank scores corpus records against a query. Records are compared in the text
// space, so image records contribute their caption and caption embedding.
// degenerate reports that no record had any tokens and cosine alone ranked them.
func (h HybridRanker) Rank(corpus []content.Record, query string, queryVec []float32) (ranked []result.Result, degenerate bool) {
	if len(corpus) == 0 {
		return nil, false
	}

	texts := make([]string, len(corpus))
	vecs := make([][]float32, len(corpus))
	for i, rec := range corpus {
		texts[i] = rec.Content()
		vecs[i] = rec.Vector(space.Text)
	}
	cos := vector.CosineAll(vecs, queryVec)

	tokens := lexical.TokenizeAll(texts)
	if lexical.IsBlank(tokens) {
		return h.pick(corpus, cos, h.cosineOnly(cos)), true
	}

	lex := lexical.NewOkapi(tokens).Scores(lexical.Tokenize(query))
	fused := Fuse(cos, lex, h.Alpha)
	return h.pick(corpus, fused, TopIndices(fused, h.TopK)), false
}

// cosineOnly keeps items at or above the threshold, and the single best item regardless.
func (h HybridRanker) cosineOnly(cos []float64) []int {
	order := TopIndices(cos, len(cos))
	keep := make([]int, 0, min(h.TopK, len(order)))
	for _, i := range order {
		if len(keep) >= h.TopK {
			break
		}
		if cos[i] >= h.DegenerateThreshold {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 && len(order) > 0 {
		keep = append(keep, order[0])
	}
	return keep
}

func (h HybridRanker) pick(corpus []content.Record, scores []float64, idx []int) []result.Result {
	out := make([]result.Result, len(idx))
	for n, i := range idx {
		out[n] = result.New(corpus[i].ID(), scores[i], corpus[i])
	}
	return out
}

// Fuse computes alpha*cos + (1-alpha)*lex/(max(lex)+1e-8) index by index.
func Fuse(cos, lex []float64, alpha float64) []float64 {
	norm := vector.MaxNormalize(lex)
	out := make([]float64, len(cos))
	for i := range cos {
		var l float64
		if i < len(norm) {
			l = norm[i]
		}
		out[i] = alpha*cos[i] + (1-alpha)*l
	}
	return out
}

// TopIndices returns the indices of the k highest scores, descending.
// Equal scores keep their original order. A negative k returns every index.
func TopIndices(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return 0
	})
	if k >= 0 && len(idx) > k {
		idx = idx[:k]
	}
	return idx
}
