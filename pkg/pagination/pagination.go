// Package pagination reads limit/offset query parameters for list
// endpoints.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FromContext extracts ?limit= and ?offset=. Missing or invalid values
// fall back to DefaultLimit and 0; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// HasMore reports whether rows remain after the current page.
func (p Params) HasMore(total int) bool {
	return p.Offset+p.Limit < total
}

// NextOffset returns the offset of the following page, or nil on the last
// page.
func (p Params) NextOffset(total int) *int {
	if !p.HasMore(total) {
		return nil
	}
	next := p.Offset + p.Limit
	return &next
}
