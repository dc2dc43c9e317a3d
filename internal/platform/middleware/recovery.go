package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/apperr"
)

const maxStackBytes = 4096

// Recovery turns a handler panic into a 500 with the standard error body.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				stack := debug.Stack()
				if len(stack) > maxStackBytes {
					stack = stack[:maxStackBytes]
				}
				username, _ := c.Get("username").(string)
				req := c.Request()
				logger.Error().
					Str("request_id", requestIDOf(c)).
					Str("username", username).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", stack).
					Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, apperr.Response{
					Message: "erro interno do servidor",
					Code:    "INTERNAL",
				})
			}()
			return next(c)
		}
	}
}

func requestIDOf(c echo.Context) string {
	if id, ok := c.Get("request_id").(string); ok {
		return id
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
