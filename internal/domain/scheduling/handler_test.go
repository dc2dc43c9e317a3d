package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":1,"professional_id":1,"date":"2024-01-15","time":"09:00","duration_minutes":30}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.ID == 0 || a.Status != StatusScheduled {
		t.Errorf("unexpected appointment: %+v", a)
	}
}

func TestHandler_Create_TimesAreZoneless(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":1,"professional_id":1,"date":"2024-01-15","time":"09:00","duration_minutes":30}`
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["start"] != "2024-01-15T09:00:00" || raw["end"] != "2024-01-15T09:30:00" {
		t.Errorf("expected zone-less wall clock times, got start %v end %v", raw["start"], raw["end"])
	}
}

func TestHandler_Create_Conflict(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":1,"professional_id":1,"date":"2024-01-15","time":"09:00"}`
	if err := h.Create(e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder())); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := h.Create(e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder()))
	if statusOf(t, err) != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
	he := err.(*echo.HTTPError)
	resp, ok := he.Message.(apperr.Response)
	if !ok || resp.Code != apperr.CodeConflict {
		t.Errorf("expected conflict code, got %#v", he.Message)
	}
}

func TestHandler_Create_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, `{}`), httptest.NewRecorder())
	if statusOf(t, h.Create(c)) != http.StatusBadRequest {
		t.Error("expected 400 for missing fields")
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	if statusOf(t, h.Get(c)) != http.StatusBadRequest {
		t.Error("expected 400 for non-numeric id")
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("404")
	if statusOf(t, h.Get(c)) != http.StatusNotFound {
		t.Error("expected 404")
	}
}

func TestHandler_SetStatusAndDelete(t *testing.T) {
	h, e := newTestHandler()
	a, err := h.svc.Save(context.Background(), AppointmentInput{
		PatientID: 1, ProfessionalID: 1, Date: "2024-01-15", Time: "09:00",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	id := strconv.FormatInt(a.ID, 10)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"status":"Confirmado"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h.SetStatus(c); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"Confirmado"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_CheckIn_WalkIn(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"patient_id":3}`), rec)
	if err := h.CheckIn(c); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 for a walk-in, got %d", rec.Code)
	}
	var res CheckInResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Created {
		t.Error("expected created=true")
	}
}

func TestHandler_Calendar(t *testing.T) {
	h, e := newTestHandler()
	if _, err := h.svc.Save(context.Background(), AppointmentInput{
		PatientID: 1, ProfessionalID: 1, Date: "2024-01-15", Time: "09:00",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?start=2024-01-15&end=2024-01-16", nil), rec)
	if err := h.Calendar(c); err != nil {
		t.Fatalf("calendar: %v", err)
	}
	var events []CalendarEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].BorderColor != "#F59E0B" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestHandler_List_InvalidProfessional(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?professional_id=x", nil), httptest.NewRecorder())
	if statusOf(t, h.List(c)) != http.StatusBadRequest {
		t.Error("expected 400")
	}
}

func TestHandler_AvailableSlots(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?date=2024-01-14&duration=60", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.AvailableSlots(c); err != nil {
		t.Fatalf("slots: %v", err)
	}
	var slots []Slot
	if err := json.Unmarshal(rec.Body.Bytes(), &slots); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(slots) != 10 {
		t.Errorf("expected 10 hourly slots in the default window, got %d", len(slots))
	}
}
