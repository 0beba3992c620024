package x12

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the tokenizer over HTTP.
type Handler struct{}

// NewHandler creates a new X12 handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers X12 endpoints on the provided route group.
//
//	POST /api/v1/x12/tokenize - Split a raw interchange into segments
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/x12/tokenize", h.Tokenize)
}

type delimitersJSON struct {
	Segment    string `json:"segment"`
	Element    string `json:"element"`
	Component  string `json:"component"`
	Repetition string `json:"repetition"`
}

type tokenizeResponse struct {
	Delimiters     delimitersJSON `json:"delimiters"`
	TransactionSet string         `json:"transaction_set,omitempty"`
	Envelope       Envelope       `json:"envelope"`
	SegmentCount   int            `json:"segment_count"`
	Segments       [][]string     `json:"segments"`
}

// Tokenize handles POST /api/v1/x12/tokenize.
func (h *Handler) Tokenize(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	doc, err := Parse(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	segments := make([][]string, len(doc.Segments))
	for i, seg := range doc.Segments {
		segments[i] = []string(seg)
	}

	return c.JSON(http.StatusOK, tokenizeResponse{
		Delimiters: delimitersJSON{
			Segment:    string(doc.Delimiters.Segment),
			Element:    string(doc.Delimiters.Element),
			Component:  string(doc.Delimiters.Component),
			Repetition: string(doc.Delimiters.Repetition),
		},
		TransactionSet: doc.TransactionSet(),
		Envelope:       doc.Envelope(),
		SegmentCount:   len(segments),
		Segments:       segments,
	})
}
