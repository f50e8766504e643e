package httpserver

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/logging"
	"github.com/Skotchmaster/mylib/internal/storage"
)

// FilesHTTP serves stored uploads. Files are public and may be embedded from any origin.
type FilesHTTP struct {
	Store storage.Storage
}

func (h *FilesHTTP) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "files.serve")

	dir, name := c.Param("dir"), c.Param("name")
	if !slices.Contains(content.ServedDirs(), dir) || name == "" || path.Base(name) != name {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	rc, info, err := h.Store.Open(ctx, dir+"/"+name)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		l.Error("file_open_failed", "status", 500, "dir", dir, "name", name, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, internalMessage)
	}
	defer rc.Close()

	hdr := c.Response().Header()
	hdr.Set(echo.HeaderAccessControlAllowOrigin, "*")
	hdr.Set("Cross-Origin-Resource-Policy", "cross-origin")

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(c.Response(), c.Request(), name, info.ModTime, rs)
		return nil
	}

	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	hdr.Set(echo.HeaderContentType, ct)
	if info.Size > 0 {
		hdr.Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	}
	if !info.ModTime.IsZero() {
		hdr.Set(echo.HeaderLastModified, info.ModTime.UTC().Format(http.TimeFormat))
	}
	c.Response().WriteHeader(http.StatusOK)
	if c.Request().Method == http.MethodHead {
		return nil
	}
	if _, err := io.Copy(c.Response(), rc); err != nil {
		l.Warn("file_stream_interrupted", "dir", dir, "name", name, "error", err)
	}
	return nil
}
