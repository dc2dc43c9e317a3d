package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
)

const (
	defaultBodyLimit = 1 << 20
	uploadPrefix     = "/api/v1/uploads"
)

// BodyLimit caps request bodies at defaultLimit, or at uploadLimit for
// multipart uploads under /api/v1/uploads. Limits are sizes such as "512K",
// "1M" or "10MB"; an unparseable size falls back to 1M.
func BodyLimit(defaultLimit, uploadLimit string) echo.MiddlewareFunc {
	jsonMax := sizeOrDefault(defaultLimit)
	uploadMax := sizeOrDefault(uploadLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := jsonMax
			if strings.HasPrefix(req.URL.Path, uploadPrefix) {
				limit = uploadMax
			}
			if req.ContentLength > limit {
				return tooLarge(limit)
			}

			req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
			err := next(c)
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return tooLarge(limit)
			}
			return err
		}
	}
}

func tooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge, apperr.Response{
		Message: fmt.Sprintf("corpo da requisição excede o limite de %d bytes", limit),
		Code:    "PAYLOAD_TOO_LARGE",
	})
}

func sizeOrDefault(s string) int64 {
	n, err := parseSize(s)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n
}

var sizeUnits = []struct {
	suffix string
	shift  uint
}{
	{"GB", 30}, {"G", 30},
	{"MB", 20}, {"M", 20},
	{"KB", 10}, {"K", 10},
	{"B", 0},
}

// parseSize converts "10M", "512KB" or "2048" to bytes.
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			shift = u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n << shift, nil
}
