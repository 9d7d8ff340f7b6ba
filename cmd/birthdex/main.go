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

	"github.com/kotonoha-labs/birthdex/internal/config"
	logpkg "github.com/kotonoha-labs/birthdex/internal/logger"
	"github.com/kotonoha-labs/birthdex/internal/metrics"
	"github.com/kotonoha-labs/birthdex/internal/ratelimit"
	catalogrepo "github.com/kotonoha-labs/birthdex/internal/repository/catalog"
	chiTransport "github.com/kotonoha-labs/birthdex/internal/transport/chi"
	openaiTransport "github.com/kotonoha-labs/birthdex/internal/transport/openai"
	dateuc "github.com/kotonoha-labs/birthdex/internal/usecase/date"
	keywordsuc "github.com/kotonoha-labs/birthdex/internal/usecase/keywords"
	searchuc "github.com/kotonoha-labs/birthdex/internal/usecase/search"
	"github.com/kotonoha-labs/birthdex/internal/version"
)

func main() {
	// Local development keeps secrets in .env
	_ = godotenv.Load()

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

	logger.Info("Starting birthdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("rate_limit_driver", cfg.RateLimit.Driver),
	)

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	loader := catalogrepo.New(catalogrepo.Config{
		CatalogPath:    cfg.Content.CatalogPath,
		MetaPath:       cfg.Content.MetaPath,
		EmbeddingsPath: cfg.Content.EmbeddingsPath,
	}, logger)
	if err := loader.Warm(); err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	// Provider clients — composition root.
	// Pass nil interfaces (not typed nil pointers!) when the provider is
	// not configured, so the services degrade instead of failing.
	var (
		embedder  searchuc.Embedder
		judge     searchuc.Judge
		extractor keywordsuc.Extractor
	)
	if cfg.Provider.APIKey != "" {
		provCfg := openaiTransport.Config{
			APIKey:     cfg.Provider.APIKey,
			BaseURL:    cfg.Provider.BaseURL,
			EmbedModel: cfg.Provider.EmbedModel,
			ChatModel:  cfg.Provider.ChatModel,
			JudgeModel: cfg.Provider.JudgeModel,
			Logger:     logger,
		}
		embedder = openaiTransport.NewEmbedder(provCfg)
		judge = openaiTransport.NewJudge(provCfg)
		extractor = openaiTransport.NewExtractor(provCfg)
		logger.Info("Provider clients created",
			zap.String("embed_model", cfg.Provider.EmbedModel),
			zap.String("chat_model", cfg.Provider.ChatModel),
			zap.String("judge_model", cfg.Provider.JudgeModel),
		)
	} else {
		logger.Warn("No provider API key set, running in lexical-only mode")
	}

	searchLimiter, err := newLimiter(cfg.RateLimit, cfg.RateLimit.Search)
	if err != nil {
		logger.Fatal("Failed to create search rate limiter", zap.Error(err))
	}
	keywordsLimiter, err := newLimiter(cfg.RateLimit, cfg.RateLimit.Keywords)
	if err != nil {
		logger.Fatal("Failed to create keywords rate limiter", zap.Error(err))
	}

	searchSvc := searchuc.New(loader, embedder, judge, searchuc.Options{
		Timeout:             time.Duration(cfg.Search.TimeoutSec) * time.Second,
		JudgeCandidateLimit: cfg.Search.JudgeCandidateLimit,
		JudgeBatchSize:      cfg.Search.JudgeBatchSize,
		Logger:              logger,
	})
	dateSvc := dateuc.New(loader)
	keywordsSvc := keywordsuc.New(extractor)

	server := chiTransport.NewServer(searchSvc, dateSvc, keywordsSvc, chiTransport.Options{
		DefaultResultLimit: cfg.Search.ResultLimit,
		Origin: chiTransport.OriginAllowlist(chiTransport.OriginConfig{
			Allowed:       cfg.Origins.Allowed,
			AllowUnlisted: cfg.Origins.AllowUnlisted,
		}, logger),
		SearchLimit:   chiTransport.RateLimit(searchLimiter, "search", logger),
		KeywordsLimit: chiTransport.RateLimit(keywordsLimiter, "keywords", logger),
		Logger:        logger,
	})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Mount(r)

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

// newLimiter builds one fixed-window limiter for an endpoint budget.
func newLimiter(cfg config.RateLimitConfig, wl config.WindowLimit) (ratelimit.Limiter, error) {
	window := time.Duration(wl.WindowSec) * time.Second
	switch cfg.Driver {
	case "memory":
		return ratelimit.NewMemory(window, wl.Max), nil
	case "redis":
		return ratelimit.NewRedis(ratelimit.RedisConfig{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		}, window, wl.Max)
	default:
		return nil, fmt.Errorf("unknown rate limit driver %q", cfg.Driver)
	}
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
						"error": "internal error",
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
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
