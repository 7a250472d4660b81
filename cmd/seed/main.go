package main

import (
	"alcyxob/rehab-app/internal/app"
	"alcyxob/rehab-app/internal/config"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/seed"
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	catalogPath := flag.String("catalog", "catalog.yaml", "catalog file to load")
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

	f, err := os.Open(*catalogPath)
	if err != nil {
		appLog.Fatal("could not open catalog", "path", *catalogPath, "error", err)
	}
	catalog, err := seed.Load(f)
	_ = f.Close()
	if err != nil {
		appLog.Fatal("invalid catalog", "path", *catalogPath, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deps, err := app.Build(ctx, cfg, appLog, metrics.NewManager("rehab", "seed", prometheus.NewRegistry()))
	if err != nil {
		appLog.Fatal("could not initialize dependencies", "error", err)
	}
	defer deps.Close()

	if _, err := seed.Apply(ctx, deps.Services.Catalog, catalog, appLog); err != nil {
		appLog.Error("seeding failed", "error", err)
		deps.Close()
		os.Exit(1)
	}
}
