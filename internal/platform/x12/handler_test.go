package x12

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

// =========== Handler Tests ===========

func TestHandler_Tokenize(t *testing.T) {
	h := NewHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/x12/tokenize", strings.NewReader(sample837))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Tokenize(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result tokenizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	if result.SegmentCount != 5 {
		t.Errorf("expected 5 segments, got %d", result.SegmentCount)
	}
	if result.TransactionSet != "837" {
		t.Errorf("expected transaction set 837, got %q", result.TransactionSet)
	}
	if result.Delimiters.Element != "*" || result.Delimiters.Segment != "~" {
		t.Errorf("unexpected delimiters %+v", result.Delimiters)
	}
}

func TestHandler_Tokenize_EmptyBody(t *testing.T) {
	h := NewHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/x12/tokenize", strings.NewReader(""))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Tokenize(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "empty") {
		t.Errorf("expected empty-document error, got %s", rec.Body.String())
	}
}
