// handex is the hand retrieval API server.
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

	"github.com/sidepot-cloud/handex/internal/config"
	"github.com/sidepot-cloud/handex/internal/db"
	dbRedis "github.com/sidepot-cloud/handex/internal/db/redis"
	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	logpkg "github.com/sidepot-cloud/handex/internal/logger"
	"github.com/sidepot-cloud/handex/internal/metrics"
	"github.com/sidepot-cloud/handex/internal/repository/embcache"
	"github.com/sidepot-cloud/handex/internal/repository/handstore"
	chiTransport "github.com/sidepot-cloud/handex/internal/transport/chi"
	openaiTransport "github.com/sidepot-cloud/handex/internal/transport/openai"
	"github.com/sidepot-cloud/handex/internal/transport/rerank"
	embeddinguc "github.com/sidepot-cloud/handex/internal/usecase/embedding"
	extractuc "github.com/sidepot-cloud/handex/internal/usecase/extract"
	healthuc "github.com/sidepot-cloud/handex/internal/usecase/health"
	ingestuc "github.com/sidepot-cloud/handex/internal/usecase/ingest"
	searchuc "github.com/sidepot-cloud/handex/internal/usecase/search"
	"github.com/sidepot-cloud/handex/internal/version"
)

func main() {
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

	logger.Info("Starting handex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	// Database store; the memory driver runs with no external store.
	var kvStore db.Store
	if cfg.Database.Driver == "redis" {
		kvStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer kvStore.Close()

		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := kvStore.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")
	}

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	embedder := buildEmbedder(ctx, &cfg, kvStore, logger)
	orchestrator := embeddinguc.NewOrchestrator(embedder, logger).
		WithBatchSizes(cfg.Embedding.QueryBatchSize, cfg.Embedding.DocBatchSize).
		WithQueryPrefix(cfg.Embedding.QueryPrefixRunes)

	var hands handstore.Store
	if kvStore != nil {
		hands = handstore.NewRedis(kvStore)
	} else {
		hands = handstore.NewMemory()
	}

	ingestSvc := ingestuc.New(hands, orchestrator, logger).
		WithConcurrency(cfg.Search.IngestWorkers)

	// Config is already validated, parse errors here are programming errors.
	defaultStrategy, err := chunk.ParseStrategy(cfg.Search.DefaultStrategy)
	if err != nil {
		logger.Fatal("Invalid default strategy", zap.Error(err))
	}
	norm, err := searchuc.ParseNormalization(cfg.Search.Normalization)
	if err != nil {
		logger.Fatal("Invalid normalization policy", zap.Error(err))
	}

	searchSvc := searchuc.New(hands, orchestrator, logger).
		WithDefaultStrategy(defaultStrategy).
		WithNormalization(norm).
		WithOversample(cfg.Search.Oversample)

	if cfg.Rerank.Enabled {
		searchSvc.WithReranker(rerank.NewClient(&rerank.Config{
			BaseURL: cfg.Rerank.BaseURL,
			APIKey:  cfg.Rerank.APIKey,
			Model:   cfg.Rerank.Model,
			Timeout: time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
			Logger:  logger,
		}))
		logger.Info("Reranker enabled", zap.String("model", cfg.Rerank.Model))
	}

	var extractSvc *extractuc.Service
	if cfg.Extract.Model != "" {
		analyzer := openaiTransport.NewExtractor(
			cfg.Extract.APIKey, cfg.Extract.BaseURL, cfg.Extract.Model, logger)
		extractSvc = extractuc.New(analyzer, logger)
		logger.Info("Transcript extraction enabled", zap.String("model", cfg.Extract.Model))
	}

	var pinger healthuc.DBPinger = noopPinger{}
	if kvStore != nil {
		pinger = kvStore
	}
	healthSvc := healthuc.New(pinger, newEmbeddingHealthChecker(embedder), hands)

	server := chiTransport.NewServer(searchSvc, ingestSvc, extractSvc, hands, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	ctx context.Context, cfg *config.Config, store db.Store, logger *zap.Logger,
) domain.BatchEmbedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var embedder domain.BatchEmbedder = base
	if store != nil {
		embedder = embcache.New(base, store, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger)
	}

	// Single BudgetTracker shared by all callers of the embedder.
	var budget embeddinguc.BudgetChecker
	if cfg.Embedding.Budget.DailyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.Embedding.Budget.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		tracker := embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, cfg.Embedding.Budget.DailyTokenLimit, action, logger)
		if store != nil {
			// Loads today's counter from the store.
			tracker.WithStore(ctx, store)
		}
		budget = tracker
	}

	return embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, budget, logger)
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

// noopPinger reports healthy for the in-memory driver.
type noopPinger struct{}

func (noopPinger) Ping(context.Context) error { return nil }

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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

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
