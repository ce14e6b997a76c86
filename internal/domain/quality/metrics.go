// Package quality summarizes a completed ranking pass into retrieval-quality
// and latency signals.
package quality

import "time"

// Metrics is the per-pass summary returned alongside results.
type Metrics struct {
	CosineAvg float64
	BLEU      float64
	LatencyMs int64
	Hybrid    bool
}

// Collector stamps ranking passes with a clock.
type Collector struct {
	now func() time.Time
}

// NewCollector creates a Collector. A nil clock means time.Now.
func NewCollector(now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	return &Collector{now: now}
}

// Start marks the beginning of candidate retrieval.
func (c *Collector) Start() Pass {
	return Pass{start: c.now(), now: c.now}
}

// Pass measures one ranking pass from the moment retrieval began.
type Pass struct {
	start time.Time
	now   func() time.Time
}

// Dense summarizes a single-space or cross-space pass, scoring the generated
// text against the top result's content.
func (p Pass) Dense(scores []float64, generated, topContent string) Metrics {
	m := p.base(scores)
	if len(scores) > 0 && generated != "" {
		m.BLEU = SentenceBLEU(topContent, generated)
	}
	return m
}

// Image summarizes an image-query pass. Generation is conditioned on the
// query image, so no BLEU is reported.
func (p Pass) Image(scores []float64) Metrics {
	return p.base(scores)
}

// Hybrid summarizes a lexical+dense pass.
func (p Pass) Hybrid(scores []float64) Metrics {
	m := p.base(scores)
	m.Hybrid = true
	return m
}

// Elapsed returns the time since the pass started.
func (p Pass) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

func (p Pass) base(scores []float64) Metrics {
	return Metrics{
		CosineAvg: Mean(scores),
		LatencyMs: p.Elapsed().Milliseconds(),
	}
}

// Mean returns the arithmetic mean of scores, 0 when empty.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
