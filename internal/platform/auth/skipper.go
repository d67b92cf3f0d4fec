package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/restws/internal/platform/rest"
)

// NeedsPrincipal reports whether path is served by the resource API, the
// only surface that stamps audit fields.
func NeedsPrincipal(path string) bool {
	return path == rest.URLPrefix || strings.HasPrefix(path, rest.URLPrefix+"/")
}

// Skipper bypasses principal extraction for health checks, metric scrapes
// and anything else outside the resource API.
func Skipper(c echo.Context) bool {
	return !NeedsPrincipal(c.Request().URL.Path)
}
