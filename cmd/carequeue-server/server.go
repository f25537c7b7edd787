package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/carequeue/internal/config"
	"github.com/ehr/carequeue/internal/domain/bed"
	"github.com/ehr/carequeue/internal/domain/inventory"
	"github.com/ehr/carequeue/internal/domain/queue"
	"github.com/ehr/carequeue/internal/platform/auth"
	"github.com/ehr/carequeue/internal/platform/db"
	"github.com/ehr/carequeue/internal/platform/events"
	"github.com/ehr/carequeue/internal/platform/kv"
	"github.com/ehr/carequeue/internal/platform/middleware"
	"github.com/ehr/carequeue/internal/platform/websocket"
)

const version = "0.3.0"

const (
	apiBodyLimit      = "64K"
	apiRequestTimeout = 15 * time.Second
)

// app bundles the services behind the HTTP surface.
type app struct {
	queue     *queue.Service
	beds      *bed.Service
	inventory *inventory.Service
	hub       *websocket.Hub
	backends  *backends
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if b.migrator != nil {
		n, err := b.migrator.Up(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("applied", n).Msg("database schema up to date")
	}

	capacities, err := cfg.Capacities()
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger)
	publishers := events.Fanout{events.NewHubPublisher(hub)}
	if cfg.KafkaEnabled() {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic), 5*time.Second)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error().Err(err).Msg("kafka writer close")
			}
		}()
		publishers = append(publishers, kp)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing queue events to kafka")
	}

	opts := []queue.ServiceOption{
		queue.WithPublisher(queueEventBridge{pub: publishers}),
		queue.WithDepartmentCapacity(capacities),
	}
	if store := b.snapshotStore(cfg); store != nil {
		opts = append(opts, queue.WithStore(store))
	}
	a := &app{
		queue:     queue.NewService(queue.NewEngine(), logger, opts...),
		beds:      bed.NewService(b.bedRepo()),
		inventory: inventory.NewService(b.inventoryRepo()),
		hub:       hub,
		backends:  b,
	}

	if err := a.queue.Hydrate(ctx); err != nil {
		return err
	}
	if cfg.SeedDemo {
		if err := seedDemo(ctx, a, time.Now(), logger); err != nil {
			return err
		}
	}

	go a.queue.RunWaitClock(ctx, cfg.WaitRefreshInterval)

	e := newRouter(cfg, logger, a)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreBackend).Str("auth", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newRouter(cfg *config.Config, logger zerolog.Logger, a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		logger.Warn().Msg("development auth: every request runs as admin")
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":     "ok",
			"version":    version,
			"store":      cfg.StoreBackend,
			"ws_clients": a.hub.ClientCount(),
		})
	})
	if a.backends != nil && a.backends.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.backends.pool, a.backends.migrator))
	}
	if a.backends != nil && a.backends.redis != nil {
		e.GET("/health/redis", kv.HealthHandler(a.backends.redis))
	}

	ws := websocket.NewHandler(a.hub, cfg.CORSOrigins, queueTopic)
	ws.RegisterRoutes(e.Group(""), auth.RequireRole(auth.RolePatient, auth.RoleStaff))

	rateLimit := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimit.RequestsPerSecond <= 0 || rateLimit.BurstSize <= 0 {
		rateLimit = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1",
		middleware.RateLimit(rateLimit),
		middleware.BodyLimit(apiBodyLimit),
		middleware.RequestTimeout(apiRequestTimeout),
	)

	queue.NewHandler(a.queue).RegisterRoutes(apiV1)
	bed.NewHandler(a.beds).RegisterRoutes(apiV1)
	inventory.NewHandler(a.inventory).RegisterRoutes(apiV1)

	return e
}
