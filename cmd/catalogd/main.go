package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogd/internal/config"
	dbRedis "github.com/kailas-cloud/catalogd/internal/db/redis"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	logpkg "github.com/kailas-cloud/catalogd/internal/logger"
	"github.com/kailas-cloud/catalogd/internal/metrics"
	"github.com/kailas-cloud/catalogd/internal/repository/mongorecord"
	"github.com/kailas-cloud/catalogd/internal/repository/record"
	chiTransport "github.com/kailas-cloud/catalogd/internal/transport/chi"
	analyticsuc "github.com/kailas-cloud/catalogd/internal/usecase/analytics"
	cataloguc "github.com/kailas-cloud/catalogd/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalogd/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/catalogd/internal/usecase/ingest"
	"github.com/kailas-cloud/catalogd/internal/version"
)

// recordStore is everything the services need from a storage backend.
type recordStore interface {
	cataloguc.Repository
	analyticsuc.Repository
	ingestuc.Repository
	healthuc.Pinger
}

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

	logger.Info("Starting catalogd API server",
		append(version.Fields(),
			zap.String("env", env),
			zap.Int("http_port", cfg.HTTP.Port),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("report_tz", cfg.Analytics.Timezone),
		)...,
	)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, &cfg)
	if err != nil {
		logger.Fatal("Failed to open record store", zap.Error(err))
	}
	defer closeStore()
	logger.Info("Connected to record store")

	metrics.RegisterEngineMetrics()

	catalogSvc := cataloguc.New(store).
		WithFacetPolicy(facet.Policy(cfg.Catalog.UnknownFacetPolicy))
	if cfg.Catalog.FacetCacheSize > 0 {
		catalogSvc = catalogSvc.WithFacetCache(cfg.Catalog.FacetCacheSize, cfg.Catalog.FacetCacheTTL())
	}
	analyticsSvc := analyticsuc.New(store).
		WithLocation(cfg.Analytics.Location()).
		WithWindow(cfg.Analytics.DefaultWindowDays, cfg.Analytics.MaxWindowDays).
		WithRecentSales(cfg.Analytics.RecentSales)
	ingestSvc := ingestuc.New(store).WithInvalidator(catalogSvc)
	healthSvc := healthuc.New(store, cfg.Database.Driver)

	server := chiTransport.NewServer(catalogSvc, analyticsSvc, ingestSvc, healthSvc).
		WithPageLimits(cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize).
		WithJWTSecret(cfg.Auth.JWTSecret)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// openStore connects the configured backend and waits until it answers.
func openStore(ctx context.Context, cfg *config.Config) (recordStore, func(), error) {
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:       cfg.Database.Addrs,
			Password:    cfg.Database.Password,
			DialTimeout: readiness,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		if err := kv.WaitForReady(ctx, readiness); err != nil {
			kv.Close()
			return nil, nil, fmt.Errorf("%s not ready: %w", cfg.Database.Driver, err)
		}
		return record.New(kv).WithKeyPrefix(cfg.Storage.KeyPrefix), kv.Close, nil

	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		repo, err := mongorecord.Connect(connectCtx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		return repo, repo.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
