package auth

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRoles must run after RequireAuth. An empty role list admits any authenticated user.
func (g *Guard) RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}
			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

// Protect chains RequireAuth and RequireRoles.
func (g *Guard) Protect(roles ...string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.RequireAuth, g.RequireRoles(roles...)}
}
