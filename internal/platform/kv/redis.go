// Package kv connects to Redis, which holds the queue snapshot when
// STORE_BACKEND=redis.
package kv

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient parses url (redis:// or rediss://) and pings the server
// before returning.
func NewRedisClient(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid REDIS_URL")
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := Ping(pingCtx, rdb); err != nil {
		rdb.Close()
		return nil, err
	}

	logger.Info().Str("addr", opt.Addr).Int("db", opt.DB).Msg("redis connected")
	return rdb, nil
}

func Ping(ctx context.Context, rdb redis.Cmdable) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis ping")
	}
	return nil
}

// HealthHandler reports 200 when Redis answers PING and 503 otherwise.
func HealthHandler(rdb redis.Cmdable) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := Ping(ctx, rdb); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	}
}
