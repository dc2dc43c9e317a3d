package reporting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_Dashboard(t *testing.T) {
	svc, q := newTestService(t)
	q.tables[sqlCountAppointments] = scalarTable(int64(3))
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.Dashboard(c); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	var got map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["hoje"].(float64) != 3 {
		t.Errorf("expected hoje=3, got %v", got["hoje"])
	}
	if _, ok := got["proximos"].([]interface{}); !ok {
		t.Errorf("expected proximos array, got %v", got["proximos"])
	}
}

func TestHandler_RunReport_BadRange(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?inicio=2024-03-10&fim=2024-03-01", nil), rec)
	c.SetParamNames("type")
	c.SetParamValues("agendamentos")
	err := h.RunReport(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_RunReport_Unknown(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("type")
	c.SetParamValues("estoque")
	err := h.RunReport(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_Export(t *testing.T) {
	svc, q := newTestService(t)
	q.tables[exports["pacientes"].sql] = &Table{Rows: [][]interface{}{{"Ana", "52998224725", "1199", "ana@x.com"}}}
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("type")
	c.SetParamValues("pacientes")
	if err := h.Export(c); err != nil {
		t.Fatalf("export: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "pacientes.csv") {
		t.Errorf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !strings.HasPrefix(rec.Body.String(), "Nome,CPF,Tel,Email\nAna,") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_Backup(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	if err := h.Backup(c); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "backup_20240315_103000.zip") {
		t.Errorf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("expected a zip body")
	}
}
