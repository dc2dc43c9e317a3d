package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/auth"
)

// AccessEntry records who touched which patient record and how.
type AccessEntry struct {
	Username  string
	Role      string
	Resource  string
	PatientID int64
	Action    string
	Method    string
	Path      string
	RemoteIP  string
	RequestID string
	Status    int
}

// sensitiveResources hold personal or health data. Access to them is logged
// on every request, reads included.
var sensitiveResources = map[string]bool{
	"patients":     true,
	"appointments": true,
	"charges":      true,
	"uploads":      true,
	"export":       true,
	"backup":       true,
}

// AccessLog emits one structured line per request that reads or changes
// patient data. Other API writes are logged too, reads of reference data
// are not.
func AccessLog(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := resourceOf(req.URL.Path)
			action := actionOf(req.Method)
			if resource == "" || (action == "read" && !sensitiveResources[resource]) {
				return next(c)
			}

			err := next(c)

			entry := AccessEntry{
				Resource:  resource,
				PatientID: patientIDOf(c, resource),
				Action:    action,
				Method:    req.Method,
				Path:      req.URL.Path,
				RemoteIP:  c.RealIP(),
				Status:    c.Response().Status,
			}
			if a, ok := auth.ActorFromContext(req.Context()); ok {
				entry.Username = a.Username
				entry.Role = a.Role
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.Status = he.Code
			}

			evt := logger.Info()
			if entry.Status >= http.StatusBadRequest {
				evt = logger.Warn()
			}
			evt.Str("type", "access").
				Str("request_id", entry.RequestID).
				Str("username", entry.Username).
				Str("role", entry.Role).
				Str("resource", entry.Resource).
				Int64("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.Status).
				Msg("data_access")
			return err
		}
	}
}

func actionOf(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceOf returns the first segment under /api/v1/, e.g. "patients".
func resourceOf(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return ""
	}
	seg, _, _ := strings.Cut(rest, "/")
	return seg
}

// patientIDOf finds the patient in /patients/:id paths or a patient_id query
// parameter.
func patientIDOf(c echo.Context, resource string) int64 {
	if resource == "patients" {
		rest := strings.TrimPrefix(c.Request().URL.Path, "/api/v1/patients/")
		seg, _, _ := strings.Cut(rest, "/")
		if id, err := strconv.ParseInt(seg, 10, 64); err == nil {
			return id
		}
	}
	if id, err := strconv.ParseInt(c.QueryParam("patient_id"), 10, 64); err == nil {
		return id
	}
	return 0
}
