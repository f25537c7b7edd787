package queue

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/carequeue/internal/platform/auth"
	"github.com/ehr/carequeue/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Patients may read the ordered queue; staff see everything.
	readGroup := api.Group("/queue", auth.RequireRole(auth.RolePatient, auth.RoleStaff))
	readGroup.GET("/visits", h.ListVisits)
	readGroup.GET("/visits/:id", h.GetVisit)
	readGroup.GET("/summary", h.Summary)
	readGroup.GET("/departments", h.Departments)

	// Mutations are staff only.
	writeGroup := api.Group("/queue", auth.RequireRole(auth.RoleStaff))
	writeGroup.POST("/visits", h.AddVisit)
	writeGroup.POST("/visits/:id/priority", h.BumpPriority)
	writeGroup.POST("/visits/:id/status", h.TransitionStatus)
}

type priorityRequest struct {
	Direction string `json:"direction"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) AddVisit(c echo.Context) error {
	var in NewVisit
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.AddVisit(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVisits(c echo.Context) error {
	status, ok := ParseStatus(c.QueryParam("status"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}
	pg := pagination.FromContext(c)
	items, total := h.svc.List(c.Request().Context(), status, pg.Limit, pg.Offset)
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) BumpPriority(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req priorityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dir, ok := ParseDirection(req.Direction)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, `direction must be "up" or "down"`)
	}
	v, err := h.svc.BumpPriority(c.Request().Context(), id, dir)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) TransitionStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, ok := ParseStatus(req.Status)
	if !ok || to == StatusAny {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	v, err := h.svc.TransitionStatus(c.Request().Context(), id, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Summary(c.Request().Context()))
}

func (h *Handler) Departments(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.DepartmentLoad(c.Request().Context()))
}

// httpError maps queue error kinds to HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
