package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRecovery_WritesErrorBody(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/ws/rest/v1/encounter", nil), rec)

	err := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		panic("nil delegate")
	})(c)
	if err != nil {
		t.Fatalf("expected the panic to be answered, got %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	var body struct {
		Error struct{ Code string } `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error.Code != "UNKNOWN" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "nil delegate") || !strings.Contains(buf.String(), `"stack"`) {
		t.Error("expected the panic value and stack to be logged")
	}
}

func TestRecovery_CommittedResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := Recovery(zerolog.Nop())(func(c echo.Context) error {
		c.Response().WriteHeader(http.StatusAccepted)
		panic("late")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected the committed status to stand, got %d", rec.Code)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/ok", nil), httptest.NewRecorder())
	if err := Recovery(zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
