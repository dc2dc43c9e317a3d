package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	uiCSP  = "default-src 'self'; img-src 'self' data: blob:; style-src 'self' 'unsafe-inline'; frame-ancestors 'self'"
)

// SecurityHeaders sets response hardening headers. JSON endpoints under /api
// get a deny-all CSP and are never cached; everything else is the browser UI
// and its assets, which load from the same origin.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(self), microphone=(), geolocation=()")

			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				h.Set("X-Frame-Options", "DENY")
				h.Set("Content-Security-Policy", apiCSP)
				// Patient data must not linger in shared browser caches.
				h.Set("Cache-Control", "no-store")
			} else {
				h.Set("X-Frame-Options", "SAMEORIGIN")
				h.Set("Content-Security-Policy", uiCSP)
			}

			return next(c)
		}
	}
}
