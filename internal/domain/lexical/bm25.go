package lexical

import "math"

// Okapi BM25 defaults.
const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

// Okapi scores documents of a tokenized corpus against a tokenized query.
// Terms with negative IDF (present in more than half the corpus) get
// epsilon times the mean IDF instead.
type Okapi struct {
	k1      float64
	b       float64
	epsilon float64

	docFreqs []map[string]int
	docLen   []int
	avgdl    float64
	idf      map[string]float64
}

// Option tunes an Okapi scorer.
type Option func(*Okapi)

// WithK1 sets the term frequency saturation parameter.
func WithK1(k1 float64) Option { return func(o *Okapi) { o.k1 = k1 } }

// WithB sets the document length normalization parameter.
func WithB(b float64) Option { return func(o *Okapi) { o.b = b } }

// WithEpsilon sets the negative IDF floor factor.
func WithEpsilon(eps float64) Option { return func(o *Okapi) { o.epsilon = eps } }

// NewOkapi indexes a tokenized corpus.
func NewOkapi(corpus [][]string, opts ...Option) *Okapi {
	o := &Okapi{
		k1:       DefaultK1,
		b:        DefaultB,
		epsilon:  DefaultEpsilon,
		docFreqs: make([]map[string]int, len(corpus)),
		docLen:   make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}
	for _, opt := range opts {
		opt(o)
	}

	nd := make(map[string]int)
	total := 0
	for i, doc := range corpus {
		o.docLen[i] = len(doc)
		total += len(doc)

		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		o.docFreqs[i] = freqs
		for term := range freqs {
			nd[term]++
		}
	}
	if len(corpus) > 0 {
		o.avgdl = float64(total) / float64(len(corpus))
	}

	o.computeIDF(len(corpus), nd)
	return o
}

func (o *Okapi) computeIDF(n int, nd map[string]int) {
	if len(nd) == 0 {
		return
	}

	var sum float64
	var negative []string
	for term, freq := range nd {
		idf := math.Log(float64(n-freq)+0.5) - math.Log(float64(freq)+0.5)
		o.idf[term] = idf
		sum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}

	floor := o.epsilon * sum / float64(len(nd))
	for _, term := range negative {
		o.idf[term] = floor
	}
}

// IDF returns the inverse document frequency of a term, 0 for unseen terms.
func (o *Okapi) IDF(term string) float64 {
	return o.idf[term]
}

// Scores returns one non-normalized relevance score per corpus document.
func (o *Okapi) Scores(query []string) []float64 {
	scores := make([]float64, len(o.docFreqs))
	if o.avgdl == 0 {
		return scores
	}

	for _, q := range query {
		idf, ok := o.idf[q]
		if !ok {
			continue
		}
		for i, freqs := range o.docFreqs {
			tf := float64(freqs[q])
			if tf == 0 {
				continue
			}
			norm := o.k1 * (1 - o.b + o.b*float64(o.docLen[i])/o.avgdl)
			scores[i] += idf * (tf * (o.k1 + 1) / (tf + norm))
		}
	}
	return scores
}
