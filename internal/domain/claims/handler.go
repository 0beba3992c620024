package claims

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edi/edi/internal/platform/auth"
)

// Handler serves 837P decoding and stored-claim lookups.
type Handler struct {
	repo Repository
}

// NewHandler creates a claims handler. repo may be nil when the service
// runs without a database; lookups then answer 503.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers claim endpoints on the provided route group.
//
//	POST /api/v1/claims/decode - Decode a raw 837P interchange
//	GET  /api/v1/claims/:id    - Fetch a stored claim
func (h *Handler) RegisterRoutes(g *echo.Group) {
	billing := g.Group("", auth.RequireRole(auth.RoleBilling))
	billing.POST("/claims/decode", h.Decode)
	billing.GET("/claims/:id", h.GetClaim)
}

// Decode handles POST /api/v1/claims/decode?file_name=...
func (h *Handler) Decode(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	name := c.QueryParam("file_name")
	if name == "" {
		name = "upload.837"
	}

	f, err := ParseFile(name, body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}
	if set := f.Envelope.TransactionSetID; set != "" && set != "837" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "expected transaction set 837, got " + set,
		})
	}
	return c.JSON(http.StatusOK, f)
}

// GetClaim handles GET /api/v1/claims/:id.
func (h *Handler) GetClaim(c echo.Context) error {
	if h.repo == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "claim storage is not configured")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.repo.GetByID(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
