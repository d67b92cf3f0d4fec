package middleware

import "github.com/labstack/echo/v4"

// writeError answers with the same body shape the resource dispatcher uses.
func writeError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}
