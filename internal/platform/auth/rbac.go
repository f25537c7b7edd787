package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admins always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasAnyRole(c.Request().Context(), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// HasAnyRole reports whether the caller holds admin or one of roles.
func HasAnyRole(ctx context.Context, roles ...string) bool {
	userRoles := RolesFromContext(ctx)
	if slices.Contains(userRoles, RoleAdmin) {
		return true
	}
	for _, required := range roles {
		if slices.Contains(userRoles, required) {
			return true
		}
	}
	return false
}
