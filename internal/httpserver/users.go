package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/logging"
	authmw "github.com/Skotchmaster/mylib/internal/middleware/auth"
	"github.com/Skotchmaster/mylib/internal/service"
)

type UsersHTTP struct {
	Svc *service.UserService
}

func (h *UsersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	users, err := h.Svc.List(ctx)
	if err != nil {
		return toHTTPError(l, "list_users_failed", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UsersHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.me")

	claims := authmw.ClaimsFrom(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	me, err := h.Svc.Me(ctx, claims.ID)
	if err != nil {
		return toHTTPError(l, "get_me_failed", err)
	}
	return c.JSON(http.StatusOK, me)
}
