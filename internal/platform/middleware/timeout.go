package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
)

// RequestTimeout bounds each request's context. Handlers run on the request
// goroutine and are expected to honour ctx; once the deadline passes, whatever
// they return is replaced by a 504 unless a response was already written.
// Paths under skipPrefixes (backup downloads, CSV exports) are not bounded.
func RequestTimeout(timeout time.Duration, skipPrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if hasAnyPrefix(c.Request().URL.Path, skipPrefixes) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, apperr.Response{
					Message: "tempo limite da requisição excedido",
					Code:    "TIMEOUT",
				})
			}
			return err
		}
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
