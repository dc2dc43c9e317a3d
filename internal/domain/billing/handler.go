package billing

import (
	"fmt"
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
	g := api.Group("", auth.RequireRole(auth.RoleReception))
	g.GET("/charges/:direction", h.ListCharges)
	g.POST("/charges/:direction", h.CreateCharge)
	g.GET("/charges/:direction/:id", h.GetCharge)
	g.POST("/charges/:direction/:id/settle", h.SettleCharge)
	g.POST("/charges/:direction/:id/receipt", h.AttachReceipt)
	g.GET("/charges/:direction/:id/receipt.pdf", h.Receipt)
	g.GET("/cash", h.ListCashEntries)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateCharge(c echo.Context) error {
	var in ChargeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ids, err := h.svc.CreateCharge(c.Request().Context(), c.Param("direction"), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"ids": ids})
}

func (h *Handler) GetCharge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	charge, err := h.svc.GetCharge(c.Request().Context(), c.Param("direction"), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, charge)
}

func (h *Handler) ListCharges(c echo.Context) error {
	charges, err := h.svc.ListCharges(c.Request().Context(), c.Param("direction"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, charges)
}

type settleRequest struct {
	Amount Amount `json:"amount"`
}

func (h *Handler) SettleCharge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req settleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.SettleCharge(c.Request().Context(), c.Param("direction"), id, req.Amount.Decimal)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type attachRequest struct {
	UploadID string `json:"upload_id"`
}

func (h *Handler) AttachReceipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req attachRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.AttachReceipt(c.Request().Context(), c.Param("direction"), id, req.UploadID); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Receipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	pdf, err := h.svc.Receipt(c.Request().Context(), c.Param("direction"), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="recibo-%d.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) ListCashEntries(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	entries, err := h.svc.ListCashEntries(c.Request().Context(), limit)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
