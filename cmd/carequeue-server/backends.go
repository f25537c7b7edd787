package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ehr/carequeue/internal/config"
	"github.com/ehr/carequeue/internal/domain/bed"
	"github.com/ehr/carequeue/internal/domain/inventory"
	"github.com/ehr/carequeue/internal/domain/queue"
	"github.com/ehr/carequeue/internal/platform/db"
	"github.com/ehr/carequeue/internal/platform/kv"
	"github.com/ehr/carequeue/migrations"
)

// backends holds the external connections selected by STORE_BACKEND. Only
// the fields for the active backend are set.
type backends struct {
	pool     *pgxpool.Pool
	migrator *db.Migrator
	redis    *redis.Client
}

func openBackends(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backends, error) {
	b := &backends{}
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:             cfg.DatabaseURL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			ConnectAttempts: cfg.DBConnectAttempts,
			RetryDelay:      2 * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		b.pool = pool
		b.migrator = db.NewMigrator(pool, migrations.FS)
	case config.StoreRedis:
		rdb, err := kv.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		b.redis = rdb
	}
	return b, nil
}

// snapshotStore returns nil for the memory backend.
func (b *backends) snapshotStore(cfg *config.Config) queue.SnapshotStore {
	switch {
	case b.pool != nil:
		return queue.NewSnapshotStorePG(b.pool)
	case b.redis != nil:
		return queue.NewSnapshotStoreRedis(b.redis, cfg.RedisSnapshotKey)
	}
	return nil
}

// Beds and inventory are relational and only persist with Postgres; the
// redis backend keeps them in memory.
func (b *backends) bedRepo() bed.Repository {
	if b.pool != nil {
		return bed.NewRepoPG(b.pool)
	}
	return bed.NewMemoryRepo()
}

func (b *backends) inventoryRepo() inventory.Repository {
	if b.pool != nil {
		return inventory.NewRepoPG(b.pool)
	}
	return inventory.NewMemoryRepo()
}

func (b *backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		b.redis.Close()
	}
}
