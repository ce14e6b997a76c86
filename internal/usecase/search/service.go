package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/domain/quality"
	"github.com/blinderchief/visiolingua/internal/domain/search/mode"
	"github.com/blinderchief/visiolingua/internal/domain/search/request"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/domain/space"
	"github.com/blinderchief/visiolingua/internal/metrics"
)

// Hints returned alongside empty answers.
const (
	NoResultsHint = "No matching content found. Try rephrasing the query or uploading related images or text."
	NoContentHint = "No content uploaded yet. Upload images or text first, then search them."
)

// Merge defaults.
const (
	DefaultMergeThreshold = 0.3
	DefaultMergeTopK      = 3
	DefaultSearchLimit    = 30
	DefaultCorpusLimit    = 200
)

// Options tunes ranking.
type Options struct {
	MergeThreshold float64
	MergeTopK      int
	SearchLimit    int
	CorpusLimit    int
	Hybrid         HybridRanker
}

// DefaultOptions returns the standard ranking constants.
func DefaultOptions() Options {
	return Options{
		MergeThreshold: DefaultMergeThreshold,
		MergeTopK:      DefaultMergeTopK,
		SearchLimit:    DefaultSearchLimit,
		CorpusLimit:    DefaultCorpusLimit,
		Hybrid: HybridRanker{
			Alpha:               DefaultHybridAlpha,
			TopK:                DefaultHybridTopK,
			DegenerateThreshold: DefaultDegenerateThreshold,
		},
	}
}

// Answer is the outcome of one query.
type Answer struct {
	Results    []result.Result
	Generation string
	Metrics    quality.Metrics
	// Hint explains an empty result list.
	Hint string
}

// Service answers text and image queries over a user's content.
type Service struct {
	cands     Candidates
	vec       Vectorizer
	gen       Generator
	tr        Translator
	collector *quality.Collector
	opts      Options
	logger    *zap.Logger
}

// New creates a search service.
func New(
	cands Candidates, vec Vectorizer, gen Generator, tr Translator,
	collector *quality.Collector, opts Options, logger *zap.Logger,
) *Service {
	return &Service{cands: cands, vec: vec, gen: gen, tr: tr, collector: collector, opts: opts, logger: logger}
}

// Query answers a text query in dense or hybrid mode.
func (s *Service) Query(ctx context.Context, q request.Query) (Answer, error) {
	if q.Mode() == mode.Hybrid {
		return s.queryHybrid(ctx, q)
	}
	return s.queryDense(ctx, q)
}

// queryDense searches both spaces concurrently and merges the hits.
func (s *Service) queryDense(ctx context.Context, q request.Query) (Answer, error) {
	vecs, err := s.vec.Query(ctx, q.Text())
	if err != nil {
		return s.unvectorized(ctx, "dense", q, err)
	}

	pass := s.collector.Start()

	var (
		clipHits, textHits []result.Result
		wg                 sync.WaitGroup
	)
	wg.Go(func() { clipHits = s.cands.Search(ctx, space.Clip, vecs[space.Clip], s.opts.SearchLimit) })
	wg.Go(func() { textHits = s.cands.Search(ctx, space.Text, vecs[space.Text], s.opts.SearchLimit) })
	wg.Wait()

	hits := append(clipHits, textHits...)
	results := Merge(hits, q.UserID(), s.opts.MergeThreshold, s.opts.MergeTopK)
	results = s.localize(ctx, results, q.Lang())

	generation := s.answer(ctx, q, results)
	ans := Answer{
		Results:    results,
		Generation: generation,
		Metrics:    pass.Dense(result.Scores(results), generation, topContent(results)),
	}
	s.observe("dense", pass, &ans)
	return ans, nil
}

// queryHybrid ranks the user's whole corpus by BM25 and cosine.
func (s *Service) queryHybrid(ctx context.Context, q request.Query) (Answer, error) {
	pass := s.collector.Start()

	corpus := s.cands.ListUserItems(ctx, q.UserID(), "", s.opts.CorpusLimit)
	corpus = ownedBy(corpus, q.UserID())
	if len(corpus) == 0 {
		return Answer{Metrics: quality.Metrics{Hybrid: true}, Hint: NoContentHint}, nil
	}

	qvec, err := s.vec.QueryText(ctx, q.Text())
	if err != nil {
		return s.unvectorized(ctx, "hybrid", q, err)
	}

	results, degenerate := s.opts.Hybrid.Rank(corpus, q.Text(), qvec)
	if degenerate {
		s.logger.Debug("Hybrid corpus has no tokens, ranking by cosine only",
			zap.String("user_id", q.UserID()),
			zap.Int("corpus", len(corpus)),
		)
	}
	results = s.localize(ctx, results, q.Lang())

	ans := Answer{
		Results:    results,
		Generation: s.answer(ctx, q, results),
		Metrics:    pass.Hybrid(result.Scores(results)),
	}
	s.observe("hybrid", pass, &ans)
	return ans, nil
}

// unvectorized answers a query whose embedding failed with an empty result.
// Only a cancelled or expired request is returned as an error.
func (s *Service) unvectorized(ctx context.Context, path string, q request.Query, err error) (Answer, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Answer{}, fmt.Errorf("vectorize query: %w", ctxErr)
	}
	metrics.QueryEmbeddingDegradedTotal.WithLabelValues(path).Inc()
	s.logger.Warn("Query embedding unavailable, returning empty result",
		zap.String("path", path),
		zap.String("user_id", q.UserID()),
		zap.Error(err),
	)
	return Answer{Metrics: quality.Metrics{Hybrid: path == "hybrid"}, Hint: NoResultsHint}, nil
}

// QueryImage searches the cross-modal space with an image and answers the
// optional question about that image.
func (s *Service) QueryImage(ctx context.Context, q request.Query) (Answer, error) {
	vec := s.vec.QueryImage(ctx, q.Image())

	pass := s.collector.Start()

	hits := s.cands.Search(ctx, space.Clip, vec, s.opts.SearchLimit)
	results := Merge(hits, q.UserID(), s.opts.MergeThreshold, s.opts.MergeTopK)
	results = s.localize(ctx, results, q.Lang())

	generation, _ := s.gen.GenerateOr(ctx, "answer_query_image",
		prompt.AskImage(q.Lang(), q.Question(), q.Image()), prompt.ImageUnavailable)

	ans := Answer{
		Results:    results,
		Generation: generation,
		Metrics:    pass.Image(result.Scores(results)),
	}
	s.observe("image", pass, &ans)
	return ans, nil
}

// answer prefers the first image result with bytes, else the joined text of every result.
func (s *Service) answer(ctx context.Context, q request.Query, results []result.Result) string {
	for _, r := range results {
		rec := r.Record()
		if rec.Kind() == content.KindImage && rec.HasImage() {
			text, _ := s.gen.GenerateOr(ctx, "answer_image",
				prompt.AskImage(q.Lang(), q.Text(), rec.ImageBytes()), prompt.ImageUnavailable)
			return text
		}
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		if c := r.Content(); c != "" {
			parts = append(parts, c)
		}
	}
	joined := strings.Join(parts, "\n")
	if joined == "" {
		joined = q.Text()
	}

	text, _ := s.gen.GenerateOr(ctx, "answer_text",
		prompt.AskText(q.Lang(), q.Text(), joined), prompt.TextUnavailable(joined))
	return text
}

// localize translates result content recorded in another language.
func (s *Service) localize(ctx context.Context, results []result.Result, lang string) []result.Result {
	for i, r := range results {
		rec := r.Record()
		if rec.Content() == "" || lang == "" || rec.Lang() == "" || rec.Lang() == lang {
			continue
		}
		results[i] = r.WithRecord(rec.WithContent(s.tr.Translate(ctx, rec.Content(), rec.Lang(), lang), lang))
	}
	return results
}

// observe sets the empty-result hint and exports the pass.
func (s *Service) observe(path string, pass quality.Pass, ans *Answer) {
	if len(ans.Results) == 0 {
		ans.Hint = NoResultsHint
	}
	metrics.RetrievalDuration.WithLabelValues(path).Observe(pass.Elapsed().Seconds())
	metrics.RetrievalResults.WithLabelValues(path).Observe(float64(len(ans.Results)))
}

func topContent(results []result.Result) string {
	if len(results) == 0 {
		return ""
	}
	return results[0].Content()
}

func ownedBy(recs []content.Record, userID string) []content.Record {
	out := recs[:0:0]
	for _, r := range recs {
		if r.UserID() == userID {
			out = append(out, r)
		}
	}
	return out
}
