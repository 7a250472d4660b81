package main

import (
	"alcyxob/rehab-app/internal/app"
	"alcyxob/rehab-app/internal/config"
	"alcyxob/rehab-app/internal/jobs"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
)

// reset clears the daily completion state of every user. Run it from cron
// shortly after midnight in the configured timezone; requests reset lazily
// otherwise.
func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	workers := flag.Int("workers", 8, "users reset concurrently")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	appLog, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, appLog, metrics.NewManager("rehab", "reset", prometheus.NewRegistry()))
	if err != nil {
		appLog.Fatal("could not initialize dependencies", "error", err)
	}
	defer deps.Close()

	report, err := jobs.ResetAll(ctx, deps.Repos.Users, deps.Services.Assignments, *workers, appLog)
	if err != nil || report.Failed > 0 {
		appLog.Error("daily reset incomplete", "failed", report.Failed, "error", err)
		deps.Close()
		os.Exit(1)
	}
}
