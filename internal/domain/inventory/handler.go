package inventory

import (
	"errors"
	"net/http"
	"strings"

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
	g := api.Group("/inventory", auth.RequireRole(auth.RoleStaff))
	g.GET("", h.ListItems)
	g.POST("", h.CreateItem)
	g.GET("/summary", h.Summary)
	g.GET("/:id", h.GetItem)
	g.PUT("/:id", h.UpdateItem)
	g.DELETE("/:id", h.DeleteItem)
	g.POST("/:id/adjust", h.AdjustStock)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var item Item
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateItem(c.Request().Context(), &item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ListItems(c echo.Context) error {
	f := Filter{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Desc:     strings.EqualFold(c.QueryParam("order"), "desc"),
	}
	if raw := c.QueryParam("status"); raw != "" && raw != "all" {
		st, ok := ParseStockStatus(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		f.Status = st
	}
	sort, ok := ParseSortField(c.QueryParam("sort"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "sort must be one of name, category, stock, minimum")
	}
	f.Sort = sort

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var item Item
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item.ID = id
	if err := h.svc.UpdateItem(c.Request().Context(), &item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AdjustStock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item, err := h.svc.AdjustStock(c.Request().Context(), id, req.Delta)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
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
		return echo.NewHTTPError(http.StatusNotFound, "inventory item not found")
	case errors.Is(err, ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
