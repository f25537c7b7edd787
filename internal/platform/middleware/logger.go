package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/carequeue/internal/platform/auth"
)

// Logger writes one structured line per request. 5xx responses and handler
// errors are logged at error level, 4xx at warn.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			var evt *zerolog.Event
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn()
				if err != nil {
					evt = evt.Str("error", err.Error())
				}
			default:
				evt = logger.Info()
			}

			ctx := c.Request().Context()
			if uid := auth.UserIDFromContext(ctx); uid != "" {
				evt = evt.Str("user_id", uid).Str("roles", strings.Join(auth.RolesFromContext(ctx), ","))
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("route", c.Path()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
