package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
)

type Handler struct {
	svc          *Service
	secureCookie bool
}

func NewHandler(svc *Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/check", h.Check)
	g.POST("/password", h.ChangePassword)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return apperr.HTTPError(err)
	}
	c.SetCookie(SessionCookie(sess.Token, sess.ExpiresAt, h.secureCookie))
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Logout(c echo.Context) error {
	h.svc.Logout(ClaimsFromContext(c.Request().Context()))
	c.SetCookie(SessionCookie("", time.Unix(0, 0), h.secureCookie))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Check(c echo.Context) error {
	actor, ok := ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	u, err := h.svc.Current(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

type passwordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	actor, ok := ActorFromContext(c.Request().Context())
	if !ok || actor.UserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
