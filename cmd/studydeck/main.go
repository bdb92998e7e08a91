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

	"github.com/studydeck/studydeck/internal/config"
	"github.com/studydeck/studydeck/internal/db"
	dbRedis "github.com/studydeck/studydeck/internal/db/redis"
	"github.com/studydeck/studydeck/internal/domain"
	logpkg "github.com/studydeck/studydeck/internal/logger"
	"github.com/studydeck/studydeck/internal/metrics"
	activityrepo "github.com/studydeck/studydeck/internal/repository/activity"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
	"github.com/studydeck/studydeck/internal/repository/embcache"
	flashcardrepo "github.com/studydeck/studydeck/internal/repository/flashcard"
	savedrepo "github.com/studydeck/studydeck/internal/repository/saved"
	userrepo "github.com/studydeck/studydeck/internal/repository/user"
	chiTransport "github.com/studydeck/studydeck/internal/transport/chi"
	"github.com/studydeck/studydeck/internal/transport/moderation"
	openaiEmb "github.com/studydeck/studydeck/internal/transport/openai"
	activityuc "github.com/studydeck/studydeck/internal/usecase/activity"
	deckuc "github.com/studydeck/studydeck/internal/usecase/deck"
	flashcarduc "github.com/studydeck/studydeck/internal/usecase/flashcard"
	healthuc "github.com/studydeck/studydeck/internal/usecase/health"
	publishuc "github.com/studydeck/studydeck/internal/usecase/publish"
	searchuc "github.com/studydeck/studydeck/internal/usecase/search"
	"github.com/studydeck/studydeck/internal/version"
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

	logger.Info("Starting studydeck API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if err := ensureIndexes(ctx, store, cfg); err != nil {
		logger.Fatal("Failed to create FT indexes", zap.Error(err))
	}
	logger.Info("FT indexes ready")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Base provider shared by both embedder chains; the health check reaches
	// it directly, bypassing cache and instruction decorators.
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	docEmbedder := buildEmbedder(base, cfg, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(base, cfg, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	deckRepo := deckrepo.New(store)
	cardRepo := flashcardrepo.New(store)
	savedRepo := savedrepo.New(store)
	activityRepo := activityrepo.New(store)
	userRepo := userrepo.New(store)

	webhook := moderation.NewWebhook(&moderation.Config{
		URL:        cfg.Moderation.URL,
		Token:      cfg.Moderation.Token,
		TimeoutSec: cfg.Moderation.TimeoutSec,
	})

	publishSvc := publishuc.New(store, deckRepo, webhook, logger)
	deckSvc := deckuc.New(deckRepo, savedRepo, cardRepo, activityRepo, userRepo, docEmbedder, publishSvc)
	cardSvc := flashcarduc.New(cardRepo, deckRepo)
	searchSvc := searchuc.New(deckRepo, savedRepo, activityRepo, userRepo, queryEmbedder)
	activitySvc := activityuc.New(activityRepo, deckRepo)
	healthSvc := healthuc.New(store, base)

	server := chiTransport.NewServer(
		deckSvc, cardSvc, searchSvc, activitySvc, publishSvc, healthSvc,
		cfg.Index.DefaultPageSize, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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

// ensureIndexes creates the six FT indexes, skipping ones that already exist.
func ensureIndexes(ctx context.Context, store db.Store, cfg config.Config) error {
	defs := []*db.IndexDefinition{
		deckrepo.IndexDefinition(cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct),
		flashcardrepo.IndexDefinition(),
		savedrepo.IndexDefinition(),
		activityrepo.SearchLogIndex(),
		activityrepo.DeckLogIndex(),
		activityrepo.AttemptIndex(),
	}
	for _, def := range defs {
		exists, err := store.IndexExists(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}
		if err := store.CreateIndex(ctx, def); err != nil {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
// The instruction prefix is outermost so the cache key includes it.
func buildEmbedder(
	base domain.Embedder,
	cfg config.Config,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if store != nil {
		ttl := time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour
		embedder = embcache.New(base, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
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

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
