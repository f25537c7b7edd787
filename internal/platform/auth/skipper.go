package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are probed by load balancers and must answer without a token.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/db":    true,
	"/health/redis": true,
}

// AuthSkipper matches on the registered route, so /health/extra is still
// protected.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
