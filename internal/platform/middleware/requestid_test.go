package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func runRequestID(t *testing.T, incoming string) (seen string, header string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(func(c echo.Context) error {
		seen = GetRequestID(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return seen, rec.Header().Get(RequestIDHeader)
}

func TestRequestID_KeepsWellFormedID(t *testing.T) {
	seen, header := runRequestID(t, "lb-7f3a.42")
	if seen != "lb-7f3a.42" || header != "lb-7f3a.42" {
		t.Errorf("expected the caller id to be kept, got %q / %q", seen, header)
	}
}

func TestRequestID_ReplacesBadIDs(t *testing.T) {
	for _, in := range []string{"", "has space", "line\nbreak", strings.Repeat("a", 65)} {
		seen, header := runRequestID(t, in)
		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("incoming %q: expected a generated uuid, got %q", in, seen)
		}
		if header != seen {
			t.Errorf("incoming %q: header %q differs from context %q", in, header, seen)
		}
	}
}

func TestGetRequestID_Absent(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := GetRequestID(c); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}
