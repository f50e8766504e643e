package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/logging"
	authmw "github.com/Skotchmaster/mylib/internal/middleware/auth"
	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/repo"
	"github.com/Skotchmaster/mylib/internal/service"
	"github.com/Skotchmaster/mylib/internal/transport"
	"github.com/Skotchmaster/mylib/internal/upload"
)

// ContentHTTP serves one content family. Downloads is only set for families that track downloads.
type ContentHTTP[T any, P interface {
	*T
	models.Record
}] struct {
	Svc       *service.ContentService[T, P]
	Downloads *service.DownloadService
}

func (h *ContentHTTP[T, P]) name() string { return h.Svc.Family.Name }

func (h *ContentHTTP[T, P]) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", h.name()+".list")

	f := repo.Filter{Kind: c.QueryParam(h.Svc.Family.KindField)}
	if len(h.Svc.Family.Searchable) > 0 {
		f.Search = c.QueryParam("search")
	}
	var err error
	if f.Page, err = queryInt(c, "page"); err != nil {
		return err
	}
	if f.Size, err = queryInt(c, "size"); err != nil {
		return err
	}

	items, err := h.Svc.List(ctx, f)
	if err != nil {
		return toHTTPError(l, h.name()+"_list_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ContentHTTP[T, P]) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", h.name()+".get")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	item, err := h.Svc.Get(ctx, id)
	if err != nil {
		return toHTTPError(l, h.name()+"_get_failed", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ContentHTTP[T, P]) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", h.name()+".create")

	req, file, cleanup, err := contentForm(c, h.Svc.Family)
	if err != nil {
		l.Warn(h.name()+"_create_error", "error", err)
		return err
	}
	defer cleanup()

	var uploader *uint
	if claims := authmw.ClaimsFrom(c); claims != nil {
		id := claims.ID
		uploader = &id
	}

	summary, err := h.Svc.Create(ctx, req, file, uploader)
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedFileType) && len(h.Svc.Family.Upload.AllowedExt) > 0 {
			l.Warn(h.name()+"_create_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest,
				"unsupported file type, allowed: "+strings.Join(h.Svc.Family.Upload.AllowedExt, ", "))
		}
		return toHTTPError(l, h.name()+"_create_error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":             h.Svc.Family.Envelope + " created",
		h.Svc.Family.Envelope: summary,
	})
}

func (h *ContentHTTP[T, P]) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", h.name()+".delete")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	role := ""
	if claims := authmw.ClaimsFrom(c); claims != nil {
		role = claims.Role
	}

	if err := h.Svc.Delete(ctx, id, role); err != nil {
		return toHTTPError(l, h.name()+"_delete_failed", err)
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: h.Svc.Family.Envelope + " deleted"})
}

// Download counts a download. A missing or invalid token only drops the per-user record.
func (h *ContentHTTP[T, P]) Download(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", h.name()+".download")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var userID *uint
	if claims := authmw.ClaimsFrom(c); claims != nil {
		uid := claims.ID
		userID = &uid
	}

	if err := h.Downloads.Record(ctx, id, userID); err != nil {
		return toHTTPError(l, "download_failed", err)
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "download recorded"})
}
