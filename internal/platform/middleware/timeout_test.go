package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
)

// waitForCtx blocks like a slow query until the request context ends.
func waitForCtx(c echo.Context) error {
	select {
	case <-time.After(5 * time.Second):
		return c.NoContent(http.StatusOK)
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
}

func TestRequestTimeout_Expiry(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/api/v1/reports/daily")

	err := RequestTimeout(30*time.Millisecond)(waitForCtx)(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %v", err)
	}
	if body, _ := he.Message.(apperr.Response); body.Code != "TIMEOUT" {
		t.Errorf("expected TIMEOUT code, got %#v", he.Message)
	}
}

func TestRequestTimeout_FastHandlers(t *testing.T) {
	cases := []struct {
		name    string
		handler echo.HandlerFunc
		want    int
	}{
		{"ok", okHandler, 0},
		{"not found passes through", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusNotFound, "paciente não encontrado")
		}, http.StatusNotFound},
		{"deadline visible to handler", func(c echo.Context) error {
			if _, ok := c.Request().Context().Deadline(); !ok {
				return echo.NewHTTPError(http.StatusTeapot)
			}
			return nil
		}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newCtx(http.MethodGet, "/api/v1/patients/12")
			err := RequestTimeout(time.Second)(tc.handler)(c)
			if tc.want == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if he, ok := err.(*echo.HTTPError); !ok || he.Code != tc.want {
				t.Errorf("expected %d, got %v", tc.want, err)
			}
		})
	}
}

func TestRequestTimeout_SkippedPrefix(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/api/v1/backup/download")

	err := RequestTimeout(10*time.Millisecond, "/api/v1/backup")(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("backup download should not carry a deadline")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
