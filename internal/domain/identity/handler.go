package identity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
	"github.com/clinica/clinica/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleProfessional))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/professionals", h.ListProfessionals)
	readGroup.GET("/professionals/:id", h.GetProfessional)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleReception))
	writeGroup.POST("/patients", h.CreatePatient)
	writeGroup.PUT("/patients/:id", h.UpdatePatient)
	writeGroup.POST("/patients/:id/active", h.SetPatientActive)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/professionals", h.CreateProfessional)
	adminGroup.PUT("/professionals/:id", h.UpdateProfessional)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = 0
	if err := h.svc.SavePatient(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	if err := h.svc.SavePatient(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.Parse(c)
	term := c.QueryParam("q")
	if term == "" {
		term = c.QueryParam("filtro")
	}
	patients, total, err := h.svc.ListPatients(c.Request().Context(), term, pg)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewPage(patients, total, pg))
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) SetPatientActive(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SetPatientActive(c.Request().Context(), id, req.Active); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Professional Handlers --

func (h *Handler) CreateProfessional(c echo.Context) error {
	// Omitting "active" keeps the professional bookable.
	p := Professional{Active: true}
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = 0
	if err := h.svc.SaveProfessional(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProfessional(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	// Omitting "active" keeps the professional bookable.
	p := Professional{Active: true}
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	if err := h.svc.SaveProfessional(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetProfessional(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfessional(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProfessionals(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	out, err := h.svc.ListProfessionals(c.Request().Context(), activeOnly)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}
