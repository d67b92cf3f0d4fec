package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ehr/restws/internal/domain"
)

// Claims are the bearer token fields the principal is read from. Tokens are
// verified upstream; this service only decodes them.
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
}

// Principal returns the login named by the claims.
func (c *Claims) Principal() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Subject
}

// ParsePrincipal decodes a bearer token without checking its signature.
func ParsePrincipal(token string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	return claims.Principal(), nil
}

// PrincipalMiddleware stores the caller on the request context for audit
// stamping. Requests without an Authorization header act as defaultUser; a
// header that is present but unreadable is rejected.
func PrincipalMiddleware(defaultUser string, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}
			user := defaultUser
			if header := c.Request().Header.Get("Authorization"); header != "" {
				parts := strings.SplitN(header, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
				}
				principal, err := ParsePrincipal(parts[1])
				if err != nil || principal == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				user = principal
			}
			c.Set("principal", user)
			ctx := domain.WithUser(c.Request().Context(), user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
