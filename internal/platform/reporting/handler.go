package reporting

import (
	"bytes"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
)

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleProfessional))
	staff.GET("/dashboard", h.Dashboard)

	desk := api.Group("", auth.RequireRole(auth.RoleReception))
	desk.GET("/reports", h.ListReports)
	desk.GET("/reports/:type", h.RunReport)
	desk.GET("/export/:type", h.Export)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/backup", h.Backup)
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListReports(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedReports)
}

func (h *Handler) RunReport(c echo.Context) error {
	r, err := ParseRange(c.QueryParam(paramStart), c.QueryParam(paramEnd), h.svc.now())
	if err != nil {
		return apperr.HTTPError(err)
	}
	report, err := h.svc.Report(c.Request().Context(), c.Param("type"), r)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Export(c echo.Context) error {
	kind := c.Param("type")
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(c.Request().Context(), kind, &buf); err != nil {
		return apperr.HTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+kind+`.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) Backup(c echo.Context) error {
	path, err := h.svc.Backup(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.Attachment(path, filepath.Base(path))
}
