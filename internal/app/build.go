package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/handler"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/infra"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/notify"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/provider"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/repository"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/store"
)

// Components is the runtime object graph shared by the binaries.
type Components struct {
	Catalog *quest.Catalog
	Store   progression.Store
	Outbox  infra.OutboxSource
	Hub     *notify.Hub
	// Fanout is nil unless REDIS_FANOUT_ENABLED is set; Run it alongside the server.
	Fanout       *notify.RedisFanout
	Engine       *progression.Engine
	HealthChecks map[string]handler.HealthCheck

	closers []func()
}

// Build connects the configured store (and Redis when fan-out is enabled) and
// constructs the engine. Call Close when done.
func Build(ctx context.Context, cfg *infra.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{HealthChecks: make(map[string]handler.HealthCheck)}

	catalog, err := quest.LoadCatalog(cfg.QuestCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load quest catalog: %w", err)
	}
	c.Catalog = catalog

	if err := c.connectStore(ctx, cfg, logger); err != nil {
		c.Close()
		return nil, err
	}

	c.Hub = notify.NewHub(logger)
	var gateway progression.Gateway = c.Hub
	if cfg.RedisFanoutEnabled {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.closers = append(c.closers, func() { client.Close() })
		c.HealthChecks["redis"] = func(ctx context.Context) error { return infra.RedisHealthCheck(ctx, client) }

		c.Fanout = notify.NewRedisFanout(client, cfg.RedisChannel, c.Hub, guard.NewCircuitBreaker(3, 10*time.Second), logger)
		gateway = c.Fanout
		logger.Info("redis notification fan-out enabled", "channel", cfg.RedisChannel)
	}

	c.Engine = progression.New(c.Store, catalog, gateway, provider.NewCryptoSource(logger),
		progression.WithLocation(cfg.ResetLocation()),
		progression.WithPolicy(cfg.Policy()),
		progression.WithLogger(logger),
	)
	return c, nil
}

func (c *Components) connectStore(ctx context.Context, cfg *infra.Config, logger *slog.Logger) error {
	switch cfg.StoreDriver {
	case infra.DriverPostgres:
		if cfg.AutoMigrate {
			if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		pool, err := infra.NewPostgresPool(ctx, cfg.DSN(), cfg.PGMaxConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		pg := store.NewPostgres(pool, repository.NewGamificationRepository(), repository.NewOutboxRepository())
		c.Store, c.Outbox = pg, pg
		c.HealthChecks["postgres"] = func(ctx context.Context) error { return infra.HealthCheck(ctx, pool) }
		logger.Info("connected to postgres")

	case infra.DriverMongo:
		client, err := infra.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, func() { _ = client.Disconnect(context.Background()) })
		db := client.Database(cfg.MongoDatabase)
		if err := infra.EnsureMongoIndexes(ctx, db, store.MongoOutboxCollection); err != nil {
			return err
		}
		ms := store.NewMongo(db, cfg.MongoCollection, logger)
		c.Store, c.Outbox = ms, ms
		c.HealthChecks["mongo"] = func(ctx context.Context) error { return infra.MongoHealthCheck(ctx, client) }
		logger.Info("connected to mongo", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)

	case infra.DriverMemory:
		mem := store.NewMemory()
		c.Store, c.Outbox = mem, mem
		logger.Warn("using in-memory progress store; state is lost on restart")

	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
