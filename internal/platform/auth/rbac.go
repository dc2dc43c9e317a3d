package auth

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
)

// Allowed reports whether the actor holds one of roles. Admin holds them all.
func (a Actor) Allowed(roles ...string) bool {
	return a.Role == RoleAdmin || slices.Contains(roles, a.Role)
}

// RequireRole rejects requests whose actor is missing (401) or lacks every
// listed role (403).
func RequireRole(roles ...string) echo.MiddlewareFunc {
	denied := apperr.Response{Message: "perfil sem permissão para esta operação", Code: "FORBIDDEN"}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c.Request().Context())
			switch {
			case !ok:
				return echo.NewHTTPError(http.StatusUnauthorized, apperr.Response{Message: "sessão ausente", Code: "UNAUTHENTICATED"})
			case !actor.Allowed(roles...):
				return echo.NewHTTPError(http.StatusForbidden, denied)
			}
			return next(c)
		}
	}
}
