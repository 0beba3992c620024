package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		target string
		want   Params
	}{
		{"/", Params{Limit: DefaultLimit, Offset: 0}},
		{"/?limit=10&offset=20", Params{Limit: 10, Offset: 20}},
		{"/?limit=9999", Params{Limit: MaxLimit, Offset: 0}},
		{"/?limit=-3&offset=-1", Params{Limit: DefaultLimit, Offset: 0}},
		{"/?limit=abc&offset=xyz", Params{Limit: DefaultLimit, Offset: 0}},
	}
	for _, tt := range tests {
		if got := paramsFor(tt.target); got != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.target, tt.want, got)
		}
	}
}

func TestNextOffset(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	next := p.NextOffset(25)
	if next == nil || *next != 10 {
		t.Fatalf("expected next offset 10, got %v", next)
	}
	if !p.HasMore(25) {
		t.Error("expected more rows")
	}

	last := Params{Limit: 10, Offset: 20}
	if last.NextOffset(25) != nil {
		t.Error("expected no next offset on the last page")
	}
	if last.HasMore(25) {
		t.Error("expected no more rows")
	}
}
