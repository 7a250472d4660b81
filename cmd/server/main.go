package main

import (
	"alcyxob/rehab-app/internal/api"
	"alcyxob/rehab-app/internal/app"
	"alcyxob/rehab-app/internal/config"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/observability"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// @title Rehab Exercise API
// @version 1.0
// @description Adaptive exercise progression for physiotherapy patients.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("starting rehab server", "address", cfg.Server.Address, "driver", cfg.Database.Driver)

	// --- Error reporting and tracing ---
	if cfg.Observability.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Observability.SentryDSN,
			Environment: cfg.Observability.Environment,
			Release:     cfg.Observability.Version,
		}); err != nil {
			appLog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}
	shutdownTracing := observability.InitTracing(context.Background(), appLog, cfg.Observability)

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsManager := metrics.NewManager("rehab", "server", registry)

	// --- Dependencies ---
	deps, err := app.Build(context.Background(), cfg, appLog, metricsManager)
	if err != nil {
		appLog.Fatal("could not initialize dependencies", "error", err)
	}
	defer deps.Close()

	// --- Router ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	api.SetupRoutes(router, api.RouterOptions{
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.Observability.ServiceName,
		Log:         appLog,
		Metrics:     metricsManager,
		Gatherer:    registry,
	}, deps.Services)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLog.Info("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("listen failed", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLog.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(ctxShutdown); err != nil {
		appLog.Warn("tracer shutdown failed", "error", err)
	}
	appLog.Info("server exiting")
}
