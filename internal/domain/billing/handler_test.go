package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func newContext(e *echo.Echo, method, target, body string, rec *httptest.ResponseRecorder) echo.Context {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return e.NewContext(req, rec)
}

func TestHandler_CreateCharge_DecimalComma(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := newContext(e, http.MethodPost, "/", `{"description":"Consulta","total":"150,50","due_date":"2024-03-01","category":"Consultas","installment_count":2}`, rec)
	c.SetParamNames("direction")
	c.SetParamValues("receber")

	if err := h.CreateCharge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.IDs) != 2 {
		t.Errorf("expected 2 ids, got %v", body.IDs)
	}
}

func TestHandler_CreateCharge_BadDirection(t *testing.T) {
	h, e := newTestHandler()
	c := newContext(e, http.MethodPost, "/", `{"total":10,"due_date":"2024-03-01","category":"x"}`, httptest.NewRecorder())
	c.SetParamNames("direction")
	c.SetParamValues("receivable")

	err := h.CreateCharge(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_SettleAndReceipt(t *testing.T) {
	h, e := newTestHandler()
	id := createOne(t, h.svc, "receber", "100")
	idStr := strconv.FormatInt(id, 10)

	rec := httptest.NewRecorder()
	c := newContext(e, http.MethodPost, "/", `{"amount":"100,00"}`, rec)
	c.SetParamNames("direction", "id")
	c.SetParamValues("receber", idStr)
	if err := h.SettleCharge(c); err != nil {
		t.Fatalf("settle: %v", err)
	}
	var res SettleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != StatusPaid {
		t.Errorf("expected Pago, got %s", res.Status)
	}

	rec = httptest.NewRecorder()
	c = newContext(e, http.MethodGet, "/", "", rec)
	c.SetParamNames("direction", "id")
	c.SetParamValues("receber", idStr)
	if err := h.Receipt(c); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("expected PDF body")
	}
}

func TestHandler_SettleCharge_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := newContext(e, http.MethodPost, "/", `{"amount":10}`, httptest.NewRecorder())
	c.SetParamNames("direction", "id")
	c.SetParamValues("pagar", "999")

	err := h.SettleCharge(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListCashEntries_InvalidLimit(t *testing.T) {
	h, e := newTestHandler()
	c := newContext(e, http.MethodGet, "/?limit=abc", "", httptest.NewRecorder())
	err := h.ListCashEntries(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ListCharges(t *testing.T) {
	h, e := newTestHandler()
	createOne(t, h.svc, "pagar", "45")

	rec := httptest.NewRecorder()
	c := newContext(e, http.MethodGet, "/", "", rec)
	c.SetParamNames("direction")
	c.SetParamValues("pagar")
	if err := h.ListCharges(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var out []Charge
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Total.String() != "45" {
		t.Errorf("unexpected charges: %+v", out)
	}
}
