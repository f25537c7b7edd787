package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolConfig holds connection settings for NewPool.
type PoolConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
	// ConnectAttempts is how many times the initial ping is tried before
	// giving up. Zero means once.
	ConnectAttempts int
	RetryDelay      time.Duration
}

func NewPool(ctx context.Context, cfg PoolConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	attempts := max(cfg.ConnectAttempts, 1)
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; ; i++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if i >= attempts {
			pool.Close()
			return nil, fmt.Errorf("ping database after %d attempts: %w", i, err)
		}
		logger.Warn().Err(err).Int("attempt", i).Dur("retry_in", delay).Msg("database not reachable")
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	logger.Info().Int32("max_conns", pcfg.MaxConns).Str("host", pcfg.ConnConfig.Host).Msg("database pool ready")
	return pool, nil
}
