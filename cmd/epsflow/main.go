package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/epsflow/internal/batch"
	"github.com/dunamismax/epsflow/internal/config"
	"github.com/dunamismax/epsflow/internal/ghostscript"
	"github.com/dunamismax/epsflow/internal/pipeline"
	"github.com/dunamismax/epsflow/internal/ratelimit"
	"github.com/dunamismax/epsflow/internal/telemetry"
	"github.com/dunamismax/epsflow/internal/web"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[epsflow] ", log.LstdFlags|log.Lmsgprefix)

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.Tracing, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Printf("tracing shutdown error: %v", err)
		}
	}()

	if err := pipeline.Startup(); err != nil {
		logger.Fatalf("image runtime startup failed: %v", err)
	}
	defer pipeline.Shutdown()
	logger.Printf("image backend=%s", pipeline.Backend())

	locator := ghostscript.NewCachedLocator(ghostscript.NewLocator())
	if path, err := locator.Locate(context.Background()); err != nil {
		logger.Printf("ghostscript not found, serving installation guidance err=%v", err)
	} else {
		logger.Printf("ghostscript found path=%s", path)
	}

	converter, err := pipeline.NewConverter(ghostscript.NewRunner(locator), cfg.Convert.Timeout)
	if err != nil {
		logger.Fatalf("converter setup failed: %v", err)
	}

	registry := web.NewRegistry()
	orchestrator := batch.NewOrchestrator(logger, converter, batch.NewMetrics(registry))

	opts := web.Options{
		Theme:              web.DefaultTheme().WithTitle(cfg.HTTP.Title),
		MaxUploadBytes:     cfg.HTTP.MaxUploadBytes,
		InlineArchiveBytes: cfg.HTTP.InlineArchiveBytes,
		PreviewWidth:       cfg.Convert.PreviewWidth,
		TrustProxy:         cfg.RateLimit.TrustProxy,
		Registry:           registry,
		Tracer:             otel.Tracer("epsflow/web"),
	}

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(cfg.RateLimit.RedisOptions())
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Printf("redis client close error: %v", err)
			}
		}()

		limiter, err := ratelimit.NewTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window)
		if err != nil {
			logger.Fatalf("rate limiter setup failed: %v", err)
		}
		opts.RateLimiter = limiter
		logger.Printf("rate limit enabled capacity=%d window=%s redis=%s trust_proxy=%t",
			cfg.RateLimit.Capacity, cfg.RateLimit.Window, cfg.RateLimit.RedisAddr, cfg.RateLimit.TrustProxy)
	}

	app := web.NewServer(logger, locator, orchestrator, opts)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Printf("listening on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
