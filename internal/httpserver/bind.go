package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/transport"
	"github.com/Skotchmaster/mylib/internal/upload"
)

// bindJSON decodes exactly one JSON object into dst and rejects unknown fields.
func bindJSON(c echo.Context, dst any) error {
	ct, _, _ := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if ct != echo.MIMEApplicationJSON {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "expected application/json")
	}

	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body: "+decodeMessage(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body: trailing data")
	}
	return nil
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &syntaxErr):
		return "malformed JSON"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	case errors.Is(err, io.EOF):
		return "empty body"
	default:
		return "malformed JSON"
	}
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return uint(id), nil
}

// queryInt reads an optional non-negative integer query parameter, 0 when absent.
func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

// contentForm reads a multipart create request. Unknown fields, repeated fields
// and more than one file are rejected. The caller must call cleanup.
func contentForm(c echo.Context, f content.Family) (transport.CreateContentRequest, *upload.File, func(), error) {
	var req transport.CreateContentRequest
	noop := func() {}

	ct, _, _ := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if ct != echo.MIMEMultipartForm {
		return req, nil, noop, echo.NewHTTPError(http.StatusUnsupportedMediaType, "expected multipart/form-data")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, nil, noop, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart body")
	}
	cleanup := func() { _ = form.RemoveAll() }

	for name, vals := range form.Value {
		if name == content.FileField || !f.AcceptsField(name) {
			cleanup()
			return req, nil, noop, echo.NewHTTPError(http.StatusBadRequest, "unknown field "+strconv.Quote(name))
		}
		if len(vals) > 1 {
			cleanup()
			return req, nil, noop, echo.NewHTTPError(http.StatusBadRequest, "field "+strconv.Quote(name)+" given more than once")
		}
	}

	var file *upload.File
	for name, fhs := range form.File {
		if name != content.FileField {
			cleanup()
			return req, nil, noop, echo.NewHTTPError(http.StatusBadRequest, "unknown file field "+strconv.Quote(name))
		}
		if len(fhs) > 1 {
			cleanup()
			return req, nil, noop, echo.NewHTTPError(http.StatusBadRequest, "only one file is accepted")
		}
		file = upload.FromMultipart(fhs[0])
	}

	value := func(name string) *string {
		if vals, ok := form.Value[name]; ok && len(vals) == 1 {
			v := vals[0]
			return &v
		}
		return nil
	}
	str := func(name string) string {
		if v := value(name); v != nil {
			return *v
		}
		return ""
	}

	req.Title = str("title")
	req.Kind = strings.TrimSpace(str(f.KindField))
	req.Author = value("author")
	req.Description = value("description")
	req.Body = value("content")
	return req, file, cleanup, nil
}
