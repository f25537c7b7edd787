package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 and logs the stack with the
// request id, route and method.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
