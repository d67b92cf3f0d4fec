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

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		handler echo.HandlerFunc
		status  int
		level   string
	}{
		{"ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, http.StatusNoContent, "info"},
		{"client error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "nope") }, http.StatusNotFound, "warn"},
		{"server error", func(c echo.Context) error {
			return writeError(c, http.StatusGatewayTimeout, "TIMEOUT", "slow")
		}, http.StatusGatewayTimeout, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/ws/rest/v1/obs", nil), rec)
			c.Set(requestIDKey, "req-1")

			if err := Logger(zerolog.New(&buf))(tt.handler)(c); err != nil {
				t.Fatalf("expected the error to be handled, got %v", err)
			}
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			entry := decodeLine(t, &buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["request_id"] != "req-1" || entry["path"] != "/ws/rest/v1/obs" {
				t.Errorf("unexpected entry %v", entry)
			}
		})
	}
}

func TestLogger_ScopesLoggerToRequest(t *testing.T) {
	var buf bytes.Buffer
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(requestIDKey, "req-9")

	h := Logger(zerolog.New(&buf))(func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inside")
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if !strings.Contains(first, `"request_id":"req-9"`) || !strings.Contains(first, "inside") {
		t.Errorf("handler log line lacks the request id: %s", first)
	}
}
