package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/logging"
)

func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}

		claims, err := g.Tokens.Verify(raw)
		if err != nil {
			logging.FromContext(c.Request().Context()).Warn("token_rejected", "reason", err.Error())
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		setUserContext(c, claims)
		return next(c)
	}
}

// Optional attaches claims when a valid bearer token is present and never rejects the request.
func (g *Guard) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if raw := bearerToken(c); raw != "" {
			if claims, err := g.Tokens.Verify(raw); err == nil {
				setUserContext(c, claims)
			}
		}
		return next(c)
	}
}
