package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/logging"
	"github.com/Skotchmaster/mylib/internal/service"
	"github.com/Skotchmaster/mylib/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		l.Warn("register_error", "error", err)
		return err
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return toHTTPError(l, "register_error", err)
	}

	return c.JSON(http.StatusCreated, transport.RegisterResponse{
		Message: "user created",
		User:    transport.UserSummary{Username: user.Username, Role: user.Role},
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		l.Warn("login_error", "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return toHTTPError(l, "login_failed", err)
	}

	return c.JSON(http.StatusOK, res)
}
