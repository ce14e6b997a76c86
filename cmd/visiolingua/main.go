package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/config"
	dbRedis "github.com/blinderchief/visiolingua/internal/db/redis"
	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/quality"
	"github.com/blinderchief/visiolingua/internal/domain/space"
	logpkg "github.com/blinderchief/visiolingua/internal/logger"
	"github.com/blinderchief/visiolingua/internal/metrics"
	contentrepo "github.com/blinderchief/visiolingua/internal/repository/content"
	"github.com/blinderchief/visiolingua/internal/repository/embcache"
	"github.com/blinderchief/visiolingua/internal/repository/memory"
	"github.com/blinderchief/visiolingua/internal/retry"
	chiTransport "github.com/blinderchief/visiolingua/internal/transport/chi"
	openaiTransport "github.com/blinderchief/visiolingua/internal/transport/openai"
	"github.com/blinderchief/visiolingua/internal/usecase/candidates"
	contentuc "github.com/blinderchief/visiolingua/internal/usecase/content"
	embeddinguc "github.com/blinderchief/visiolingua/internal/usecase/embedding"
	"github.com/blinderchief/visiolingua/internal/usecase/generation"
	healthuc "github.com/blinderchief/visiolingua/internal/usecase/health"
	searchuc "github.com/blinderchief/visiolingua/internal/usecase/search"
	storyuc "github.com/blinderchief/visiolingua/internal/usecase/story"
	"github.com/blinderchief/visiolingua/internal/usecase/translate"
	"github.com/blinderchief/visiolingua/internal/version"
)

// contentStore is what the composition root needs from a candidate store backend.
type contentStore interface {
	candidates.Repository
	contentuc.Repository
	EnsureIndex(ctx context.Context) error
	Ping(ctx context.Context) error
}

// kvStore backs the embedding cache.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func main() {
	_ = godotenv.Load()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting visiolingua API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()

	// Candidate store: redis and valkey share the rueidis client, memory is for local runs
	var (
		repo  contentStore
		cache kvStore
	)
	switch cfg.Database.Driver {
	case "redis", "valkey":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
			Valkey:   cfg.Database.Driver == "valkey",
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")

		repo = contentrepo.New(store, contentrepo.Options{
			KeyPrefix:   cfg.Storage.KeyPrefix,
			ClipDim:     cfg.Embedding.Clip.Dimensions,
			TextDim:     cfg.Embedding.Text.Dimensions,
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		if cfg.Embedding.Cache {
			cache = store
		}
	case "memory":
		logger.Warn("Using in-memory candidate store, content is lost on restart")
		repo = memory.New()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	if err := repo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure content index", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterHTTPMetrics()

	// Embedder chains, one per space
	textCfg := cfg.Embedding.Text
	textProv := cfg.Embedding.Providers[textCfg.Provider]
	textBase := buildEmbedder(space.Text, textProv, textCfg, cfg.Storage.KeyPrefix, cache, logger)
	textDoc := withInstruction(textBase, textCfg.DocumentInstruction)
	textQuery := withInstruction(textBase, textCfg.QueryInstruction)

	clipCfg := cfg.Embedding.Clip
	var clip embeddinguc.ClipEmbedder = domain.NewZeroEmbedder(clipCfg.Dimensions)
	if clipCfg.IsEnabled() {
		clip = buildEmbedder(space.Clip, cfg.Embedding.Providers[clipCfg.Provider], clipCfg,
			cfg.Storage.KeyPrefix, cache, logger)
	}
	logger.Info("Embedders created",
		zap.String("text_model", textCfg.Model),
		zap.Int("text_dimensions", textCfg.Dimensions),
		zap.Bool("clip_enabled", clipCfg.IsEnabled()),
		zap.String("clip_model", clipCfg.Model),
		zap.Int("clip_dimensions", clipCfg.Dimensions),
	)
	spaces := embeddinguc.NewSpaces(textDoc, textQuery, clip, clipCfg.Dimensions, logger)

	// Language model behind the rate-limit retry policy
	genCfg := cfg.Generation
	genProv := cfg.Embedding.Providers[genCfg.Provider]
	llm := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:       genProv.APIKey,
		BaseURL:      genProv.BaseURL,
		Model:        genCfg.Model,
		MaxTokens:    genCfg.MaxTokens,
		Temperature:  genCfg.Temperature,
		Timeout:      time.Duration(genCfg.TimeoutSec) * time.Second,
		RateLimitRPS: genCfg.RateLimitRPS,
		MaxImageSide: genCfg.MaxImageSide,
		Logger:       logger,
	})
	policy := retry.RateLimited()
	policy.Attempts = genCfg.Retry.Attempts
	policy.BaseDelay = time.Duration(genCfg.Retry.BaseDelayMs) * time.Millisecond
	gen := generation.New(llm, policy, logger)

	// Pass nil interface (not typed nil pointer!) when translation is off.
	var translateGen translate.Generator
	if genCfg.Translate {
		translateGen = gen
	}
	translator := translate.New(translateGen, logger)

	// Use case services
	cands := candidates.New(repo, logger)
	rc := cfg.Retrieval
	searchSvc := searchuc.New(cands, spaces, gen, translator, quality.NewCollector(nil), searchuc.Options{
		MergeThreshold: *rc.MergeThreshold,
		MergeTopK:      rc.MergeTopK,
		SearchLimit:    rc.SearchLimit,
		CorpusLimit:    rc.CorpusLimit,
		Hybrid: searchuc.HybridRanker{
			Alpha:               *rc.HybridAlpha,
			TopK:                rc.HybridTopK,
			DegenerateThreshold: rc.DegenerateThreshold,
		},
	}, logger)
	storySvc := storyuc.New(storyuc.NewSelector(cands, rc.GroundingScanLimit, logger), gen)
	contentSvc := contentuc.New(repo, cands, spaces, gen, logger)

	healthProviders := []healthuc.Provider{
		{Name: "generation", Checker: llm},
		{Name: "embedding", Checker: healthChecker(textBase)},
	}
	if clipCfg.IsEnabled() {
		healthProviders = append(healthProviders, healthuc.Provider{Name: "clip", Checker: healthChecker(clip)})
	}
	healthSvc := healthuc.New(repo, healthProviders...)

	// Create chi server
	server := chiTransport.NewServer(contentSvc, searchSvc, storySvc, healthSvc, cfg.HTTP.MaxUploadBytes, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorCodeBadRequest,
				Message: err.Error(),
			})
		},
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// providerHealth adapts an embedder chain to healthuc.ProviderChecker.
type providerHealth struct {
	embedder domain.Embedder
}

// healthChecker returns nil when the chain has no health probe, so the
// health service skips it.
func healthChecker(embedder domain.Embedder) healthuc.ProviderChecker {
	if _, ok := embedder.(domain.HealthChecker); !ok {
		return nil
	}
	return &providerHealth{embedder: embedder}
}

func (h *providerHealth) HealthCheck(ctx context.Context) error {
	if err := h.embedder.(domain.HealthChecker).HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}

// embedderChain is the decorated vectorizer for one space.
type embedderChain struct {
	*embeddinguc.InstrumentedEmbedder
	probe domain.HealthChecker
}

func (c *embedderChain) HealthCheck(ctx context.Context) error {
	return c.probe.HealthCheck(ctx)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented
func buildEmbedder(
	sp space.Space,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	keyPrefix string,
	cache kvStore,
	logger *zap.Logger,
) *embedderChain {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})

	// Cached
	var inner domain.Embedder = base
	if cache != nil {
		inner = embcache.New(base, cache, embcache.Options{
			KeyPrefix: keyPrefix,
			Namespace: string(sp),
		}, metrics.EmbeddingCacheTotal.MustCurryWith(map[string]string{"space": string(sp)}), logger)
	}

	return &embedderChain{
		InstrumentedEmbedder: embeddinguc.NewInstrumentedEmbedder(inner, string(sp), vecCfg.Model, logger),
		probe:                base,
	}
}

// withInstruction prepends the instruction prefix (outermost, so the cache key excludes it).
func withInstruction(embedder domain.Embedder, instruction string) domain.Embedder {
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternal,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("user_id", chi.URLParam(r, "user_id")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
