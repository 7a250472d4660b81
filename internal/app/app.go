// Package app wires repositories, locks, storage and services from config.
// The server and the batch commands share it.
package app

import (
	"alcyxob/rehab-app/internal/api"
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/config"
	"alcyxob/rehab-app/internal/lock"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/repository"
	"alcyxob/rehab-app/internal/repository/memory"
	"alcyxob/rehab-app/internal/repository/mongo"
	"alcyxob/rehab-app/internal/service"
	"alcyxob/rehab-app/internal/storage"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Repositories groups the storage backends of one driver.
type Repositories struct {
	Users       repository.UserRepository
	Categories  repository.CategoryRepository
	Variants    repository.VariantRepository
	InjuryTypes repository.InjuryTypeRepository
	Assignments repository.AssignmentRepository
	Sessions    repository.SessionRepository
}

// Deps is the fully wired application.
type Deps struct {
	Repos    Repositories
	Clock    clock.Clock
	Services api.Services

	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// Build connects to the configured backends and constructs every service.
func Build(ctx context.Context, cfg config.Config, log *logger.Logger, m *metrics.Manager) (*Deps, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}
	loc, err := cfg.Progression.Location()
	if err != nil {
		return nil, err
	}

	d := &Deps{Clock: clock.New(loc)}
	if err := d.openRepositories(ctx, cfg, log); err != nil {
		d.Close()
		return nil, err
	}

	locker := d.openLocker(cfg, log)

	var files storage.FileStorage
	if cfg.S3.Enabled() {
		files, err = storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
	} else {
		log.Warn("s3 not configured, exercise video uploads disabled")
	}

	r := d.Repos
	catalog := service.NewCatalogService(r.Categories, r.Variants, r.InjuryTypes, files, cfg.S3.PresignExpiry, log)
	assignments := service.NewAssignmentService(r.Assignments, r.Variants, r.Categories, r.InjuryTypes, r.Users, locker, d.Clock, m, log)
	sessions := service.NewSessionService(r.Sessions, locker, d.Clock)
	engine := service.NewProgressionEngine(service.Rules{
		HighPainThreshold: cfg.Progression.HighPainThreshold,
		LowPainWindow:     cfg.Progression.LowPainWindow,
	}, assignments, catalog, r.Variants, r.Sessions, locker, m, log)

	d.Services = api.Services{
		Auth:        service.NewAuthService(r.Users, r.InjuryTypes, assignments, d.Clock, cfg.JWT.Secret, cfg.JWT.Expiration, log),
		Catalog:     catalog,
		Assignments: assignments,
		Completion:  service.NewCompletionService(assignments, sessions, engine, locker, cfg.Progression.AutoApply, m, log),
		Sessions:    sessions,
		Stats:       service.NewStatsService(r.Assignments, r.Sessions, r.Variants, d.Clock),
	}
	return d, nil
}

func (d *Deps) openRepositories(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory database, data is lost on exit")
		store := memory.New()
		d.Repos = Repositories{
			Users:       store.Users(),
			Categories:  store.Categories(),
			Variants:    store.Variants(),
			InjuryTypes: store.InjuryTypes(),
			Assignments: store.Assignments(),
			Sessions:    store.Sessions(),
		}
		return nil
	}

	client, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	d.closers = append(d.closers, func() {
		if err := mongo.DisconnectDB(client); err != nil {
			log.Error("failed to disconnect mongodb", "error", err)
		}
	})
	db := client.Database(cfg.Database.Name)

	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	mongo.EnsureIndexes(indexCtx, db, log)

	d.Repos = Repositories{
		Users:       mongo.NewMongoUserRepository(db),
		Categories:  mongo.NewMongoCategoryRepository(db),
		Variants:    mongo.NewMongoVariantRepository(db),
		InjuryTypes: mongo.NewMongoInjuryTypeRepository(db),
		Assignments: mongo.NewMongoAssignmentRepository(db),
		Sessions:    mongo.NewMongoSessionRepository(db),
	}
	log.Info("mongodb connected", "database", cfg.Database.Name)
	return nil
}

// openLocker picks the Redis lock when an address is configured, so several
// server replicas serialize the same user.
func (d *Deps) openLocker(cfg config.Config, log *logger.Logger) lock.Locker {
	if cfg.Redis.Address == "" {
		return lock.NewLocal()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	d.closers = append(d.closers, func() {
		if err := client.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	})
	log.Info("using redis user lock", "address", cfg.Redis.Address)
	return lock.NewRedis(client, cfg.Redis.LockTTL, log)
}
