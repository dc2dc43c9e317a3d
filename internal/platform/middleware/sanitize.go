package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var scriptPatterns = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection or script payloads in query parameters with 400.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			rawPath := req.URL.RawPath
			if rawPath == "" {
				rawPath = path
			}

			reject := func(reason string) error {
				logger.Warn().Str("path", path).Str("remote_ip", c.RealIP()).
					Str("reason", reason).Msg("request rejected")
				return echo.NewHTTPError(http.StatusBadRequest, reason)
			}

			if containsPathTraversal(path) || containsPathTraversal(rawPath) {
				return reject("path traversal detected")
			}
			if containsNullByte(path) || containsNullByte(rawPath) {
				return reject("null byte in path")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return reject("header too large: " + name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return reject("header injection detected: " + name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(v) || containsNullByte(key) {
						return reject("null byte in query parameter")
					}
					if scriptPatterns.MatchString(v) || scriptPatterns.MatchString(key) {
						return reject("script in query parameter")
					}
				}
			}
			return next(c)
		}
	}
}

func containsPathTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}
