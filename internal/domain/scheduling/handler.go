package scheduling

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
	staff := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleProfessional))
	staff.GET("/appointments", h.List)
	staff.GET("/appointments/calendar", h.Calendar)
	staff.GET("/appointments/waiting-room", h.WaitingRoom)
	staff.GET("/appointments/:id", h.Get)
	staff.GET("/professionals/:id/slots", h.AvailableSlots)
	staff.POST("/appointments", h.Create)
	staff.PUT("/appointments/:id", h.Update)
	staff.POST("/appointments/:id/status", h.SetStatus)
	staff.POST("/appointments/check-in", h.CheckIn)
	staff.POST("/appointments/:id/transfer", h.Transfer)

	desk := api.Group("", auth.RequireRole(auth.RoleReception))
	desk.DELETE("/appointments/:id", h.Delete)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in.ID = 0
	a, err := h.svc.Save(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in.ID = id
	a, err := h.svc.Save(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.TransitionStatus(c.Request().Context(), id, req.Status, req.Reason)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type checkInRequest struct {
	PatientID      int64 `json:"patient_id"`
	ProfessionalID int64 `json:"professional_id"`
}

func (h *Handler) CheckIn(c echo.Context) error {
	var req checkInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.CheckIn(c.Request().Context(), req.PatientID, req.ProfessionalID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}

type transferRequest struct {
	ProfessionalID int64  `json:"professional_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Transfer(c.Request().Context(), id, req.ProfessionalID, req.Date, req.Time)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// queryParam returns the first non-empty query parameter among names.
func queryParam(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := c.QueryParam(n); v != "" {
			return v
		}
	}
	return ""
}

func (h *Handler) List(c echo.Context) error {
	var profID int64
	if p := queryParam(c, "professional_id", "prof_id"); p != "" {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid professional_id")
		}
		profID = id
	}
	views, err := h.svc.List(c.Request().Context(), queryParam(c, "from", "inicio"), queryParam(c, "to", "fim"), profID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) Calendar(c echo.Context) error {
	events, err := h.svc.Calendar(c.Request().Context(), c.QueryParam("start"), c.QueryParam("end"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, events)
}

func (h *Handler) WaitingRoom(c echo.Context) error {
	entries, err := h.svc.WaitingRoom(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	duration := 0
	if d := c.QueryParam("duration"); d != "" {
		if duration, err = strconv.Atoi(d); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration")
		}
	}
	slots, err := h.svc.AvailableSlots(c.Request().Context(), id, c.QueryParam("date"), duration)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, slots)
}
