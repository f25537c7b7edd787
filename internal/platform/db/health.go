package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) PoolStats {
	stat := pool.Stat()
	return PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Health is the body of GET /health/db.
type Health struct {
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Pool       *PoolStats `json:"pool,omitempty"`
	Migrations int        `json:"migrations_applied"`
	Pending    []string   `json:"pending,omitempty"`
}

// HealthHandler pings the database and reports pool statistics together
// with how far the schema has been migrated. A pending migration does not
// make the database unhealthy.
func HealthHandler(pool *pgxpool.Pool, m *Migrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := GetPoolStats(pool)
		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Health{Status: "unhealthy", Error: err.Error(), Pool: &stats})
		}

		h := Health{Status: "healthy", Pool: &stats}
		if m != nil {
			if statuses, err := m.Status(ctx); err == nil {
				for _, st := range statuses {
					if st.Applied {
						h.Migrations++
					} else {
						h.Pending = append(h.Pending, st.Name)
					}
				}
			}
		}
		return c.JSON(http.StatusOK, h)
	}
}
