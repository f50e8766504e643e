package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/service"
	"github.com/Skotchmaster/mylib/internal/upload"
)

const internalMessage = "internal server error"

// toHTTPError maps service errors to client responses. Internal detail only reaches the log.
func toHTTPError(l *slog.Logger, event string, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		l.Warn(event, "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
			"message": "validation failed",
			"errors":  ve.Fields,
		})
	case errors.Is(err, service.ErrDuplicateIdentity):
		return warn(l, event, http.StatusBadRequest, err, "username already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		return warn(l, event, http.StatusUnauthorized, err, "invalid username or password")
	case errors.Is(err, service.ErrForbidden):
		return warn(l, event, http.StatusForbidden, err, "insufficient permissions")
	case errors.Is(err, service.ErrNotFound):
		return warn(l, event, http.StatusNotFound, err, "not found")
	case errors.Is(err, upload.ErrUnsupportedFileType):
		return warn(l, event, http.StatusBadRequest, err, "unsupported file type")
	case errors.Is(err, upload.ErrFileTooLarge):
		return warn(l, event, http.StatusBadRequest, err, "file too large")
	default:
		l.Error(event, "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, internalMessage)
	}
}

func warn(l *slog.Logger, event string, status int, err error, msg string) error {
	l.Warn(event, "status", status, "error", err)
	return echo.NewHTTPError(status, msg)
}
