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

	"github.com/kailas-cloud/lexivec/internal/config"
	dbBadger "github.com/kailas-cloud/lexivec/internal/db/badger"
	"github.com/kailas-cloud/lexivec/internal/domain"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
	"github.com/kailas-cloud/lexivec/internal/domain/query"
	"github.com/kailas-cloud/lexivec/internal/index/text"
	"github.com/kailas-cloud/lexivec/internal/index/vector"
	logpkg "github.com/kailas-cloud/lexivec/internal/logger"
	"github.com/kailas-cloud/lexivec/internal/metrics"
	documentrepo "github.com/kailas-cloud/lexivec/internal/repository/document"
	jobrepo "github.com/kailas-cloud/lexivec/internal/repository/job"
	chiTransport "github.com/kailas-cloud/lexivec/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/lexivec/internal/transport/openai"
	healthuc "github.com/kailas-cloud/lexivec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/lexivec/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/lexivec/internal/usecase/search"
	"github.com/kailas-cloud/lexivec/internal/version"
)

func main() {
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

	logger.Info("Starting lexivec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_path", cfg.Storage.Path),
	)

	store, err := dbBadger.Open(cfg.Storage.Path, logger)
	if err != nil {
		logger.Fatal("Failed to open document store", zap.Error(err))
	}
	defer store.Close()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Embedder is optional: without an API key the engine runs text-only.
	var embedder *openaiEmb.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("No embedding API key configured, running text-only")
	}

	// In-process indices, rebuilt from the document store on boot.
	textIdx := text.NewIndex().WithBM25(cfg.Engine.BM25K1, cfg.Engine.BM25B)
	vecIdx := vector.NewIndex(cfg.Embedding.Dimensions)
	parser := query.NewParser().WithFuzzyDistance(cfg.Engine.FuzzyDistance)

	docRepo := documentrepo.New(store)
	jobRepo := jobrepo.New(store)

	ctx := context.Background()
	if err := rebuildIndices(ctx, docRepo, textIdx, vecIdx, logger); err != nil {
		logger.Fatal("Failed to rebuild indices", zap.Error(err))
	}

	// Pass nil interface (not typed nil pointer!) if no embedder is
	// configured. Go gotcha: (*Embedder)(nil) wrapped in the interface != nil.
	var docEmbedder domain.Embedder
	if embedder != nil {
		docEmbedder = embedder
	}

	ingestSvc, err := ingestuc.New(docRepo, textIdx, vecIdx, jobRepo, docEmbedder, logger)
	if err != nil {
		logger.Fatal("Failed to create ingest service", zap.Error(err))
	}
	defer ingestSvc.Release()
	ingestSvc.WithPoolSize(cfg.Engine.PoolSize).WithMaxBatchSize(cfg.Engine.MaxBatchSize)

	searchSvc := searchuc.New(textIdx, vecIdx, docRepo, docEmbedder, parser)

	var embChecker healthuc.EmbeddingChecker
	if embedder != nil {
		embChecker = embedder
	}
	healthSvc := healthuc.New(store, embChecker, textIdx, vecIdx)

	server := chiTransport.NewServer(searchSvc, ingestSvc, healthSvc, textIdx, vecIdx, logger).
		WithSearchDefaults(searchuc.Options{
			UseVector:    true,
			FieldWeights: cfg.Engine.FieldWeights,
			VectorWeight: cfg.Engine.VectorWeight,
			TextWeight:   cfg.Engine.TextWeight,
			MinScore:     cfg.Engine.MinScore,
			Timeout:      time.Duration(cfg.Engine.SearchTimeout) * time.Second,
		})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

// rebuildIndices replays every stored document into the in-process
// indices. A stale embedding (dimension change between runs) drops the
// document from the vector index but keeps it searchable by text.
func rebuildIndices(
	ctx context.Context,
	docs *documentrepo.Repo,
	textIdx *text.Index,
	vecIdx *vector.Index,
	logger *zap.Logger,
) error {
	start := time.Now()
	stale := 0

	err := docs.Walk(ctx, func(doc domdoc.Document) error {
		if err := textIdx.Index(doc.ID(), doc.FieldTexts()); err != nil {
			return fmt.Errorf("text index %s: %w", doc.ID(), err)
		}
		if len(doc.Embedding()) > 0 {
			if err := vecIdx.Upsert(doc.ID(), doc.Embedding()); err != nil {
				stale++
				logger.Warn("Skipping stale embedding",
					zap.String("doc_id", doc.ID()), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.IndexedDocuments.WithLabelValues("text").Set(float64(textIdx.DocCount()))
	metrics.IndexedDocuments.WithLabelValues("vector").Set(float64(vecIdx.DocCount()))

	logger.Info("Indices rebuilt",
		zap.Int("text_docs", textIdx.DocCount()),
		zap.Int("vector_docs", vecIdx.DocCount()),
		zap.Int("stale_embeddings", stale),
		zap.Duration("took", time.Since(start)),
	)
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
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
