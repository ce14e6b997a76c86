package visiolingua

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/blinderchief/visiolingua/internal/db/redis"
	"github.com/blinderchief/visiolingua/internal/domain"
	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/quality"
	"github.com/blinderchief/visiolingua/internal/domain/search/mode"
	"github.com/blinderchief/visiolingua/internal/domain/search/request"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	contentrepo "github.com/blinderchief/visiolingua/internal/repository/content"
	"github.com/blinderchief/visiolingua/internal/repository/memory"
	"github.com/blinderchief/visiolingua/internal/retry"
	"github.com/blinderchief/visiolingua/internal/usecase/candidates"
	contentuc "github.com/blinderchief/visiolingua/internal/usecase/content"
	embeddinguc "github.com/blinderchief/visiolingua/internal/usecase/embedding"
	"github.com/blinderchief/visiolingua/internal/usecase/generation"
	healthuc "github.com/blinderchief/visiolingua/internal/usecase/health"
	searchuc "github.com/blinderchief/visiolingua/internal/usecase/search"
	storyuc "github.com/blinderchief/visiolingua/internal/usecase/story"
	"github.com/blinderchief/visiolingua/internal/usecase/translate"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultTextDim          = 384
	defaultClipDim          = 512
)

// store is what the client needs from a candidate store backend.
type store interface {
	candidates.Repository
	contentuc.Repository
	EnsureIndex(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Internal interfaces for swapping in tests.
type contentUseCase interface {
	Upload(ctx context.Context, u contentuc.Upload) (string, error)
	History(ctx context.Context, userID string, limit int) []domcontent.Record
	Delete(ctx context.Context, userID string) (int, error)
}

type searchUseCase interface {
	Query(ctx context.Context, q request.Query) (searchuc.Answer, error)
	QueryImage(ctx context.Context, q request.Query) (searchuc.Answer, error)
}

type storyUseCase interface {
	Generate(ctx context.Context, st request.Story) storyuc.Story
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the visiolingua SDK entry point.
type Client struct {
	closer     func()
	store      store
	contentSvc contentUseCase
	searchSvc  searchUseCase
	storySvc   storyUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a Client and connects to the store.
// The provided context is used for the readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		textDim: defaultTextDim,
		clipDim: defaultClipDim,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.driver == "" {
		return nil, errors.New("visiolingua: store required (use WithValkey, WithRedis or WithMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	s, closer, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureIndex(ctx); err != nil {
		if closer != nil {
			closer()
		}
		return nil, fmt.Errorf("visiolingua: ensure index: %w", err)
	}

	c := wireClient(s, cfg, obs)
	c.closer = closer
	return c, nil
}

func createStore(ctx context.Context, cfg *clientConfig) (store, func(), error) {
	switch cfg.driver {
	case "memory":
		return memory.New(), nil, nil
	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, errors.New("visiolingua: database address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
			Valkey:   cfg.driver == "valkey",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("visiolingua: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("visiolingua: database not ready: %w", err)
		}
		repo := contentrepo.New(s, contentrepo.Options{
			KeyPrefix: cfg.keyPrefix,
			ClipDim:   cfg.clipDim,
			TextDim:   cfg.textDim,
		})
		return repo, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("visiolingua: unknown driver %q", cfg.driver)
	}
}

func wireClient(s store, cfg *clientConfig, obs *observer) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Embedders: text is mandatory, clip degrades to zero vectors
	var text domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		text = &embedderAdapter{inner: cfg.embedder}
	}
	var clip embeddinguc.ClipEmbedder = domain.NewZeroEmbedder(cfg.clipDim)
	if cfg.clipEmbedder != nil {
		clip = newClipAdapter(cfg.clipEmbedder)
	}
	spaces := embeddinguc.NewSpaces(text, nil, clip, cfg.clipDim, logger)

	var llm generation.Generator = noopGenerator{}
	if cfg.generator != nil {
		llm = &generatorAdapter{inner: cfg.generator}
	}
	policy := retry.RateLimited()
	if cfg.retryAttempts > 0 {
		policy.Attempts = cfg.retryAttempts
	}
	if cfg.retryBaseDelay > 0 {
		policy.BaseDelay = cfg.retryBaseDelay
	}
	gen := generation.New(llm, policy, logger)

	// Pass nil interface (not typed nil pointer!) without a generator.
	var translateGen translate.Generator
	if cfg.generator != nil {
		translateGen = gen
	}

	cands := candidates.New(s, logger)
	return &Client{
		store:      s,
		contentSvc: contentuc.New(s, cands, spaces, gen, logger),
		searchSvc: searchuc.New(cands, spaces, gen, translate.New(translateGen, logger),
			quality.NewCollector(nil), searchOptions(cfg.retrieval), logger),
		storySvc:  storyuc.New(storyuc.NewSelector(cands, cfg.retrieval.GroundingScanLimit, logger), gen),
		healthSvc: healthuc.New(s),
		obs:       obs,
	}
}

func searchOptions(r Retrieval) searchuc.Options {
	o := searchuc.DefaultOptions()
	if r.MergeThreshold != nil {
		o.MergeThreshold = *r.MergeThreshold
	}
	if r.MergeTopK > 0 {
		o.MergeTopK = r.MergeTopK
	}
	if r.SearchLimit > 0 {
		o.SearchLimit = r.SearchLimit
	}
	if r.CorpusLimit > 0 {
		o.CorpusLimit = r.CorpusLimit
	}
	if r.HybridAlpha != nil {
		o.Hybrid.Alpha = *r.HybridAlpha
	}
	if r.HybridTopK > 0 {
		o.Hybrid.TopK = r.HybridTopK
	}
	if r.DegenerateThreshold > 0 {
		o.Hybrid.DegenerateThreshold = r.DegenerateThreshold
	}
	return o
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Upload stores one document and returns its id.
func (c *Client) Upload(ctx context.Context, u Upload) (id string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload", start, err) }()

	id, err = c.contentSvc.Upload(ctx, contentuc.Upload{
		UserID:   u.UserID,
		Lang:     u.Lang,
		Text:     u.Text,
		File:     u.File,
		FileName: u.FileName,
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return id, nil
}

// Query ranks the user's records against a text query and answers it.
func (c *Client) Query(ctx context.Context, q Query) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	req, err := request.NewText(q.Text, q.UserID, q.Lang, mode.Mode(q.Mode))
	if err != nil {
		return Answer{}, fmt.Errorf("query: %w: %w", ErrInvalidInput, err)
	}
	res, err := c.searchSvc.Query(ctx, req)
	if err != nil {
		return Answer{}, fmt.Errorf("query: %w", err)
	}
	return fromAnswer(res), nil
}

// QueryImage ranks the user's records against an image and answers the
// optional question about it.
func (c *Client) QueryImage(ctx context.Context, q ImageQuery) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query_image", start, err) }()

	req, err := request.NewImage(q.Image, q.UserID, q.Lang, q.Question)
	if err != nil {
		return Answer{}, fmt.Errorf("query image: %w: %w", ErrInvalidInput, err)
	}
	res, err := c.searchSvc.QueryImage(ctx, req)
	if err != nil {
		return Answer{}, fmt.Errorf("query image: %w", err)
	}
	return fromAnswer(res), nil
}

// Story generates a story on a theme, grounded on the user's content when possible.
func (c *Client) Story(ctx context.Context, r StoryRequest) (Story, error) {
	start := time.Now()

	req, err := request.NewStory(r.Theme, r.UserID, r.Lang, r.ContentID)
	if err != nil {
		err = fmt.Errorf("story: %w: %w", ErrInvalidInput, err)
		c.obs.observe("story", start, err)
		return Story{}, err
	}
	st := c.storySvc.Generate(ctx, req)
	c.obs.observe("story", start, nil)
	return Story(st), nil
}

// History lists the user's records, newest first. A non-positive limit means the default.
func (c *Client) History(ctx context.Context, userID string, limit int) []HistoryItem {
	start := time.Now()
	defer c.obs.observe("history", start, nil)

	recs := c.contentSvc.History(ctx, userID, limit)
	items := make([]HistoryItem, len(recs))
	for i, rec := range recs {
		items[i] = HistoryItem{
			ID:           rec.ID(),
			Type:         string(rec.Kind()),
			Lang:         rec.Lang(),
			Timestamp:    rec.Timestamp(),
			OriginalName: rec.OriginalName(),
		}
	}
	return items
}

// DeleteHistory removes every record the user owns and returns how many went.
func (c *Client) DeleteHistory(ctx context.Context, userID string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_history", start, err) }()

	n, err = c.contentSvc.Delete(ctx, userID)
	if err != nil {
		return n, fmt.Errorf("delete history: %w", err)
	}
	return n, nil
}

// Health checks the store.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

func fromAnswer(a searchuc.Answer) Answer {
	results := make([]Result, len(a.Results))
	for i, r := range a.Results {
		results[i] = fromResult(r)
	}
	return Answer{
		Results:    results,
		Generation: a.Generation,
		Metrics: Metrics{
			CosineAvg: a.Metrics.CosineAvg,
			BLEU:      a.Metrics.BLEU,
			LatencyMs: a.Metrics.LatencyMs,
			Hybrid:    a.Metrics.Hybrid,
		},
		Hint: a.Hint,
	}
}

func fromResult(r result.Result) Result {
	rec := r.Record()
	return Result{
		ID:           r.ID(),
		UserID:       rec.UserID(),
		Type:         string(rec.Kind()),
		Lang:         rec.Lang(),
		Content:      rec.Content(),
		Score:        r.Score(),
		Image:        rec.ImageBytes(),
		Timestamp:    rec.Timestamp(),
		OriginalName: rec.OriginalName(),
	}
}
