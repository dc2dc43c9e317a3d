package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/apperr"
)

func newCtx(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequestID(t *testing.T) {
	cases := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "agenda-42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newCtx(http.MethodGet, "/api/v1/appointments")
			if tc.incoming != "" {
				c.Request().Header.Set(RequestIDHeader, tc.incoming)
			}

			var seen string
			err := RequestID()(func(c echo.Context) error {
				seen, _ = c.Get("request_id").(string)
				return nil
			})(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
				t.Fatalf("context id %q and header %q should match", seen, rec.Header().Get(RequestIDHeader))
			}
			if tc.incoming != "" && seen != tc.incoming {
				t.Errorf("expected %q, got %q", tc.incoming, seen)
			}
		})
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	cases := []struct {
		name    string
		handler echo.HandlerFunc
		level   string
		status  float64
	}{
		{"ok", okHandler, "info", http.StatusOK},
		{"conflict", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusConflict, "conflito")
		}, "warn", http.StatusConflict},
		{"server error", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusInternalServerError, "falha")
		}, "error", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			c, _ := newCtx(http.MethodPost, "/api/v1/appointments")
			c.Set("request_id", "req-123")
			c.Set("username", "recepcao")

			_ = Logger(zerolog.New(&buf))(tc.handler)(c)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tc.level || entry["status"] != tc.status {
				t.Errorf("expected %s/%v, got %v/%v", tc.level, tc.status, entry["level"], entry["status"])
			}
			if entry["username"] != "recepcao" || entry["request_id"] != "req-123" {
				t.Errorf("missing request identity in %s", buf.String())
			}
		})
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newCtx(http.MethodPut, "/api/v1/charges/7/settle")
	c.Set("request_id", "req-9")
	c.Set("username", "caixa")

	err := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		panic("nil ledger")
	})(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", err)
	}
	if body, ok := he.Message.(apperr.Response); !ok || body.Code != "INTERNAL" {
		t.Errorf("expected apperr body, got %#v", he.Message)
	}
	out := buf.String()
	for _, want := range []string{`"panic":"nil ledger"`, `"username":"caixa"`, `"path":"/api/v1/charges/7/settle"`, `"request_id":"req-9"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/health")
	if err := Recovery(zerolog.New(io.Discard))(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
