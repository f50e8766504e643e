package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/tokens"
)

const claimsKey = "claims"

type Verifier interface {
	Verify(raw string) (*tokens.Claims, error)
}

type Guard struct {
	Tokens Verifier
}

func NewGuard(v Verifier) *Guard {
	return &Guard{Tokens: v}
}

// ClaimsFrom returns the claims attached by RequireAuth or Optional, or nil.
func ClaimsFrom(c echo.Context) *tokens.Claims {
	claims, _ := c.Get(claimsKey).(*tokens.Claims)
	return claims
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func setUserContext(c echo.Context, claims *tokens.Claims) {
	c.Set(claimsKey, claims)
	c.Set("user_id", claims.ID)
	c.Set("role", claims.Role)
}
