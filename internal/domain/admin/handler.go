package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints: every staff role
	readGroup := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleProfessional))
	readGroup.GET("/insurance-plans", h.ListPlans)
	readGroup.GET("/insurance-plans/:id", h.GetPlan)
	readGroup.GET("/lookups/:kind", h.ListLookup)
	readGroup.GET("/settings", h.GetSettings)
	readGroup.GET("/settings/lan-qr.png", h.LANQRCode)

	// Insurance plans are kept by the front desk
	deskGroup := api.Group("", auth.RequireRole(auth.RoleReception))
	deskGroup.POST("/insurance-plans", h.CreatePlan)
	deskGroup.PUT("/insurance-plans/:id", h.UpdatePlan)
	deskGroup.DELETE("/insurance-plans/:id", h.DeletePlan)

	// Write endpoints: admin only
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/lookups/:kind", h.CreateLookup)
	adminGroup.PUT("/lookups/:kind/:id", h.UpdateLookup)
	adminGroup.DELETE("/lookups/:kind/:id", h.DeleteLookup)
	adminGroup.PUT("/settings", h.SaveSettings)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Insurance Plan Handlers --

func (h *Handler) CreatePlan(c echo.Context) error {
	var p InsurancePlan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = 0
	if err := h.svc.SavePlan(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var p InsurancePlan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	if err := h.svc.SavePlan(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPlans(c echo.Context) error {
	out, err := h.svc.ListPlans(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DeletePlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePlan(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Lookup Handlers --

type lookupRequest struct {
	Name string `json:"name"`
}

func (h *Handler) ListLookup(c echo.Context) error {
	out, err := h.svc.ListLookup(c.Request().Context(), c.Param("kind"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateLookup(c echo.Context) error {
	var req lookupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item := &LookupItem{Name: req.Name}
	if err := h.svc.SaveLookup(c.Request().Context(), c.Param("kind"), item); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateLookup(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req lookupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item := &LookupItem{ID: id, Name: req.Name}
	if err := h.svc.SaveLookup(c.Request().Context(), c.Param("kind"), item); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteLookup(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteLookup(c.Request().Context(), c.Param("kind"), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Settings Handlers --

func (h *Handler) GetSettings(c echo.Context) error {
	cs, err := h.svc.GetSettings(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) SaveSettings(c echo.Context) error {
	var cs ClinicSettings
	if err := c.Bind(&cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SaveSettings(c.Request().Context(), &cs); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) LANQRCode(c echo.Context) error {
	png, err := h.svc.LANQRCode(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}
