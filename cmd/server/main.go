// Package main is the entry point for the point-of-sale API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailpos/internal/app"
	"retailpos/internal/config"
	"retailpos/internal/domain/auth"
	v1 "retailpos/internal/infrastructure/http/v1"
	"retailpos/internal/infrastructure/http/v1/handlers"
	"retailpos/internal/infrastructure/http/v1/middleware"
	"retailpos/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting retailpos server", "driver", cfg.Storage.Driver, "version", version)

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize services", "error", err)
	}
	defer services.Close()

	// --- JWT Service ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	if cfg.JWT.Issuer != "" {
		jwtConfig.Issuer = cfg.JWT.Issuer
	}
	if cfg.JWT.TTL > 0 {
		jwtConfig.AccessTokenTTL = cfg.JWT.TTL
	}
	jwtService := auth.NewJWTService(jwtConfig)

	var pinger handlers.Pinger
	if services.Pool != nil {
		pinger = services.Pool
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go sweepLimiter(ctx, limiter, log)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		JWTValidator:   jwtService,
		Idempotency:    services.Idempotency,
		Pinger:         pinger,
		Driver:         cfg.Storage.Driver,
		Products:       services.Products,
		Customers:      services.Customers,
		Sales:          services.Sales,
		Reports:        services.Reports,
		Audit:          services.Audit,
		CORS:           cfg.CORS,
		RateLimiter:    limiter,
		RequestTimeout: cfg.Sales.RequestTimeout,
		Version:        version,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// sweepLimiter drops idle per-client limiters.
func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter, log *logger.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(); n > 0 {
				log.Debugw("rate limiter entries evicted", "count", n)
			}
		}
	}
}
