package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context. Handlers and the
// stores they call observe it through ctx; a handler that fails with
// context.DeadlineExceeded is reported as 504. Do not install it on
// long-lived routes such as /ws.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
			}
			return err
		}
	}
}
