package uploads

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
	"github.com/clinica/clinica/pkg/pagination"
)

// Handler serves multipart upload, download, metadata and delete.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleProfessional))
	staff.POST("/uploads", h.Upload)
	staff.GET("/uploads", h.List)
	staff.GET("/uploads/:id", h.Download)
	staff.GET("/uploads/:id/metadata", h.GetMetadata)

	desk := api.Group("", auth.RequireRole(auth.RoleReception))
	desk.DELETE("/uploads/:id", h.Delete)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	}
	return apperr.HTTPError(err)
}

func (h *Handler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
	}
	defer src.Close()

	category := c.FormValue("category")
	if category == "" {
		category = CategoryAttachment
	}
	meta := Metadata{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Category:    category,
	}
	result, err := h.store.Upload(c.Request().Context(), meta, src)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// inline types open in the browser instead of downloading.
func inline(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}

func (h *Handler) Download(c echo.Context) error {
	rc, meta, err := h.store.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()

	disposition := "attachment"
	if inline(meta.ContentType) {
		disposition = "inline"
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, strings.ReplaceAll(meta.FileName, `"`, "")))
	c.Response().Header().Set("X-Content-Type-Options", "nosniff")
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *Handler) GetMetadata(c echo.Context) error {
	meta, err := h.store.Metadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.Parse(c)
	items, total, err := h.store.List(c.Request().Context(), c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, pg))
}
