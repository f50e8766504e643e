package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/logging"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

func apiStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "message": "MYLib API is running"})
}

func live(c echo.Context) error { return c.NoContent(http.StatusOK) }

func ready(ping Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ping == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			logging.FromContext(ctx).Warn("readiness_failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
		return c.NoContent(http.StatusOK)
	}
}
