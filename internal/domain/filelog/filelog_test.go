package filelog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/edi/edi/internal/platform/auth"
)

func TestMemoryRepo_RecordOnce(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	e, err := NewEntry("claims.837", "837P", "hash-a", 3, map[string]int{"invalid_dates": 0})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	written, err := repo.Record(ctx, e)
	if err != nil || !written {
		t.Fatalf("expected first record to be written, got %v %v", written, err)
	}

	dup, _ := NewEntry("copy.837", "837P", "hash-a", 3, nil)
	written, err = repo.Record(ctx, dup)
	if err != nil || written {
		t.Fatalf("expected duplicate hash to be ignored, got %v %v", written, err)
	}

	ok, _ := repo.Exists(ctx, "hash-a")
	if !ok {
		t.Error("expected hash-a to exist")
	}
	got, err := repo.GetByHash(ctx, "hash-a")
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.FileName != "claims.837" || got.Status() != StatusProcessed {
		t.Errorf("unexpected entry %+v", got)
	}
	if string(got.Summary) != `{"invalid_dates":0}` {
		t.Errorf("unexpected summary %s", got.Summary)
	}
}

func TestMemoryRepo_ListPages(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for _, h := range []string{"a", "b", "c"} {
		e, _ := NewEntry("f-"+h, "835", h, 1, nil)
		repo.Record(ctx, e)
	}

	page, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("expected 2 of 3, got %d of %d", len(page), total)
	}
	page, _, _ = repo.List(ctx, 2, 5)
	if len(page) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(page))
	}
}

func newTestContext(e *echo.Echo, target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithUser(req.Context(), "tester", []string{auth.RoleBilling}))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_ListAndGet(t *testing.T) {
	repo := NewMemoryRepo()
	e, _ := NewEntry("era.835", "835", "abc", 2, nil)
	repo.Record(context.Background(), e)
	h := NewHandler(repo)
	ec := echo.New()

	c, rec := newTestContext(ec, "/api/v1/files?limit=10")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Limit != 10 || len(resp.Entries) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}

	c, rec = newTestContext(ec, "/api/v1/files/abc")
	c.SetParamNames("hash")
	c.SetParamValues("abc")
	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, rec = newTestContext(ec, "/api/v1/files/missing")
	c.SetParamNames("hash")
	c.SetParamValues("missing")
	_ = h.Get(c)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
