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
	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/config"
	"github.com/tsurugi-io/kensaku/internal/domain"
	logpkg "github.com/tsurugi-io/kensaku/internal/logger"
	"github.com/tsurugi-io/kensaku/internal/metrics"
	"github.com/tsurugi-io/kensaku/internal/query"
	"github.com/tsurugi-io/kensaku/internal/repository/embbudget"
	"github.com/tsurugi-io/kensaku/internal/repository/embcache"
	"github.com/tsurugi-io/kensaku/internal/store"
	storeMemory "github.com/tsurugi-io/kensaku/internal/store/memory"
	storeRedis "github.com/tsurugi-io/kensaku/internal/store/redis"
	chiTransport "github.com/tsurugi-io/kensaku/internal/transport/chi"
	openaiEmb "github.com/tsurugi-io/kensaku/internal/transport/openai"
	healthuc "github.com/tsurugi-io/kensaku/internal/usecase/health"
	ingestuc "github.com/tsurugi-io/kensaku/internal/usecase/ingest"
	retrievaluc "github.com/tsurugi-io/kensaku/internal/usecase/retrieval"
	"github.com/tsurugi-io/kensaku/internal/version"
)

// backingStore is what the composition root needs from a store driver.
type backingStore interface {
	store.Store
	store.KV
	store.CounterStore
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting kensaku API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Strings("store_addrs", cfg.Store.Addrs),
	)

	// Create the store based on driver
	var st backingStore
	switch cfg.Store.Driver {
	case "memory":
		st = storeMemory.New()
	case "redis":
		rs, err := storeRedis.NewStore(storeRedis.Config{
			Addrs:     cfg.Store.Addrs,
			Password:  cfg.Store.Password,
			KeyPrefix: cfg.Store.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer rs.Close()

		readiness := time.Duration(cfg.Store.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(context.Background(), readiness); err != nil {
			logger.Fatal("Store not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")
		st = rs
	default:
		logger.Fatal("Unknown store driver", zap.String("driver", cfg.Store.Driver))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	embedder := buildEmbedder(cfg.Embedding, st, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	params := paramsFromConfig(cfg.Retrieval)

	// Use case services
	processor := query.NewProcessor()
	lexical := retrievaluc.NewLexicalSearcher(st, st, embedder, params, logger)
	vector := retrievaluc.NewVectorSearcher(st, embedder)
	retrievalSvc := retrievaluc.New(processor, lexical, vector, params, logger)
	ingestSvc := ingestuc.New(st, embedder, logger)
	healthSvc := healthuc.New(st, newEmbeddingHealthChecker(embedder))

	// HTTP layer
	server := chiTransport.NewServer(retrievalSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

// buildEmbedder assembles the decorator chain: OpenAI -> Budget -> Cached.
// The cache sits outermost so cache hits consume no budget.
func buildEmbedder(cfg config.EmbeddingConfig, st backingStore, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	if cfg.DailyTokenLimit > 0 || cfg.MonthlyTokenLimit > 0 {
		tracker := embbudget.NewTracker(
			cfg.Provider, cfg.DailyTokenLimit, cfg.MonthlyTokenLimit,
			embbudget.Action(cfg.BudgetAction), logger,
		).WithStore(context.Background(), st)
		embedder = embbudget.Guard(embedder, tracker, metrics.EmbeddingBudgetTokensRemaining, logger)
	}

	if cfg.CacheSize != 0 {
		embedder = embcache.New(embedder, st, metrics.EmbeddingCacheTotal, logger)
	}
	return embedder
}

// paramsFromConfig overlays the configured knobs on the defaults.
// Zero config values keep the default.
func paramsFromConfig(cfg config.RetrievalConfig) retrievaluc.Params {
	p := retrievaluc.DefaultParams()
	if cfg.SparseWeight > 0 {
		p.SparseWeight = cfg.SparseWeight
	}
	if cfg.DenseWeight > 0 {
		p.DenseWeight = cfg.DenseWeight
	}
	if cfg.RRFConstant > 0 {
		p.RRFConstant = cfg.RRFConstant
	}
	if cfg.WeightedBlend > 0 {
		p.WeightedBlend = cfg.WeightedBlend
	}
	if cfg.CategoryCap > 0 {
		p.CategoryCap = cfg.CategoryCap
	}
	if cfg.TitleMatchThreshold > 0 {
		p.TitleMatchThreshold = cfg.TitleMatchThreshold
	}
	if cfg.BaseThreshold > 0 {
		p.BaseThreshold = cfg.BaseThreshold
	}
	if cfg.RelevanceOverride > 0 {
		p.RelevanceOverride = cfg.RelevanceOverride
	}
	if cfg.DuplicateOverlap > 0 {
		p.DuplicateOverlap = cfg.DuplicateOverlap
	}
	if cfg.MinQualityResults > 0 {
		p.MinQualityResults = cfg.MinQualityResults
	}
	if cfg.DefaultLimit > 0 {
		p.DefaultLimit = cfg.DefaultLimit
	}
	if cfg.MaxCandidateFanout > 0 {
		p.MaxCandidates = cfg.MaxCandidateFanout
	}
	return p
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
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
