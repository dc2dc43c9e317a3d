package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths bypass the session requirement. Everything outside /api is the
// static browser UI.
var publicPaths = map[string]bool{
	"/health":             true,
	"/health/db":          true,
	"/api/v1/auth/login":  true,
	"/api/v1/auth/logout": true,
	"/api/v1/auth/check":  true,
}

// AuthSkipper returns true for requests that may proceed without a session.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Request().URL.Path)
}

func IsPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	return !strings.HasPrefix(path, "/api/")
}
