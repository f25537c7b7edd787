package bed

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
	g := api.Group("/beds", auth.RequireRole(auth.RoleStaff))
	g.GET("", h.ListBeds)
	g.POST("", h.CreateBed)
	g.GET("/summary", h.Summary)
	g.GET("/:id", h.GetBed)
	g.PUT("/:id/assign", h.AssignBed)
	g.PUT("/:id/release", h.ReleaseBed)
	g.PUT("/:id/maintenance", h.SetMaintenance)
}

func (h *Handler) CreateBed(c echo.Context) error {
	var b Bed
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateBed(c.Request().Context(), &b); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBed(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	f := Filter{
		Department: c.QueryParam("department"),
		Query:      c.QueryParam("q"),
	}
	if raw := c.QueryParam("status"); raw != "" && raw != "all" {
		st, ok := ParseStatus(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		f.Status = st
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBeds(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AssignBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Assignment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.AssignBed(c.Request().Context(), id, a)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ReleaseBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.ReleaseBed(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) SetMaintenance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Maintenance *bool `json:"maintenance"`
	}
	if err := c.Bind(&req); err != nil || req.Maintenance == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "maintenance flag is required")
	}
	b, err := h.svc.SetMaintenance(c.Request().Context(), id, *req.Maintenance)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Summary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sum)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "bed not found")
	case errors.Is(err, ErrState), errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
