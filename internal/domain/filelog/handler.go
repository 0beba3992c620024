package filelog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edi/edi/internal/platform/auth"
	"github.com/edi/edi/pkg/pagination"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers file log endpoints on the provided route group.
//
//	GET /api/v1/files        - List loaded files, newest first
//	GET /api/v1/files/:hash  - Fetch one file log entry
func (h *Handler) RegisterRoutes(g *echo.Group) {
	billing := g.Group("", auth.RequireRole(auth.RoleBilling))
	billing.GET("/files", h.List)
	billing.GET("/files/:hash", h.Get)
}

type listResponse struct {
	pagination.Params
	Total      int      `json:"total"`
	NextOffset *int     `json:"next_offset"`
	Entries    []*Entry `json:"entries"`
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)

	entries, total, err := h.repo.List(c.Request().Context(), page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, listResponse{
		Params:     page,
		Total:      total,
		NextOffset: page.NextOffset(total),
		Entries:    entries,
	})
}

func (h *Handler) Get(c echo.Context) error {
	e, err := h.repo.GetByHash(c.Request().Context(), c.Param("hash"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "file not found"})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}
