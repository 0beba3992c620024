package remittance

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/platform/auth"
)

// Handler serves 835 decoding, matching and stored-payment lookups.
type Handler struct {
	repo    Repository
	matcher *matching.Matcher
}

// NewHandler creates a remittance handler. Either dependency may be nil;
// the endpoints that need it then answer 503.
func NewHandler(repo Repository, matcher *matching.Matcher) *Handler {
	return &Handler{repo: repo, matcher: matcher}
}

// RegisterRoutes registers remittance endpoints on the provided route group.
//
//	POST /api/v1/remittances/decode           - Decode a raw 835 interchange
//	POST /api/v1/remittances/match            - Decode and match every payment
//	GET  /api/v1/remittances/:id              - Fetch a stored payment
//	GET  /api/v1/claims/:id/payments          - Payments matched to a claim
func (h *Handler) RegisterRoutes(g *echo.Group) {
	billing := g.Group("", auth.RequireRole(auth.RoleBilling))
	billing.POST("/remittances/decode", h.Decode)
	billing.POST("/remittances/match", h.Match)
	billing.GET("/remittances/:id", h.GetPayment)
	billing.GET("/claims/:id/payments", h.ListByClaim)
}

func (h *Handler) decodeBody(c echo.Context) (*File, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	name := c.QueryParam("file_name")
	if name == "" {
		name = "upload.835"
	}

	f, err := ParseFile(name, body)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}
	if set := f.Envelope.TransactionSetID; set != "" && set != "835" {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{
			"error": "expected transaction set 835, got " + set,
		})
	}
	return f, nil
}

// Decode handles POST /api/v1/remittances/decode?file_name=...
func (h *Handler) Decode(c echo.Context) error {
	f, err := h.decodeBody(c)
	if f == nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

type matchResponse struct {
	*File
	MatchSummary map[matching.Strategy]int `json:"match_summary"`
}

// Match handles POST /api/v1/remittances/match?file_name=...
func (h *Handler) Match(c echo.Context) error {
	if h.matcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "claim matching is not configured")
	}
	f, err := h.decodeBody(c)
	if f == nil {
		return err
	}
	if err := MatchAll(c.Request().Context(), h.matcher, f.Payments); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, matchResponse{File: f, MatchSummary: MatchCounts(f.Payments)})
}

// GetPayment handles GET /api/v1/remittances/:id.
func (h *Handler) GetPayment(c echo.Context) error {
	if h.repo == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payment storage is not configured")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.repo.GetByID(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "payment not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// ListByClaim handles GET /api/v1/claims/:id/payments.
func (h *Handler) ListByClaim(c echo.Context) error {
	if h.repo == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payment storage is not configured")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	payments, err := h.repo.ListByClaim(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  payments,
		"total": len(payments),
	})
}
