package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/auth"
)

func runAccessLog(t *testing.T, method, target string, actor *auth.Actor, handler echo.HandlerFunc) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")

	_ = AccessLog(zerolog.New(&buf))(handler)(c)

	if buf.Len() == 0 {
		return nil
	}
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return line
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestAccessLog_PatientRead(t *testing.T) {
	actor := &auth.Actor{UserID: 2, Username: "recepcao", Role: auth.RoleReception}
	line := runAccessLog(t, http.MethodGet, "/api/v1/patients/42/notes", actor, okHandler)
	if line == nil {
		t.Fatal("expected an access log line")
	}
	if line["resource"] != "patients" || line["action"] != "read" {
		t.Errorf("unexpected resource/action: %v", line)
	}
	if line["patient_id"].(float64) != 42 {
		t.Errorf("expected patient_id 42, got %v", line["patient_id"])
	}
	if line["username"] != "recepcao" || line["request_id"] != "req-1" {
		t.Errorf("unexpected actor fields: %v", line)
	}
}

func TestAccessLog_PatientQueryParam(t *testing.T) {
	line := runAccessLog(t, http.MethodGet, "/api/v1/appointments?patient_id=7", nil, okHandler)
	if line == nil || line["patient_id"].(float64) != 7 {
		t.Fatalf("expected patient_id 7, got %v", line)
	}
}

func TestAccessLog_SkipsReferenceReads(t *testing.T) {
	if line := runAccessLog(t, http.MethodGet, "/api/v1/lookups/salas", nil, okHandler); line != nil {
		t.Errorf("expected no log for lookup reads, got %v", line)
	}
	if line := runAccessLog(t, http.MethodGet, "/health", nil, okHandler); line != nil {
		t.Errorf("expected no log outside the API, got %v", line)
	}
}

func TestAccessLog_WritesAlwaysLogged(t *testing.T) {
	line := runAccessLog(t, http.MethodPut, "/api/v1/settings", nil, okHandler)
	if line == nil || line["action"] != "update" || line["resource"] != "settings" {
		t.Fatalf("expected update on settings, got %v", line)
	}
}

func TestAccessLog_ErrorStatus(t *testing.T) {
	failing := func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "not found") }
	line := runAccessLog(t, http.MethodDelete, "/api/v1/charges/receber/9", nil, failing)
	if line == nil {
		t.Fatal("expected a log line")
	}
	if line["status"].(float64) != 404 || line["level"] != "warn" || line["action"] != "delete" {
		t.Errorf("unexpected error log: %v", line)
	}
}

func TestResourceOf(t *testing.T) {
	cases := map[string]string{
		"/api/v1/patients":          "patients",
		"/api/v1/charges/pagar/3":   "charges",
		"/api/v1/":                  "",
		"/health":                   "",
		"/api/v1/reports/financeiro": "reports",
	}
	for path, want := range cases {
		if got := resourceOf(path); got != want {
			t.Errorf("resourceOf(%q) = %q, want %q", path, got, want)
		}
	}
}
