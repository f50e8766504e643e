package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/mylib/internal/storage"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

const maxExtLen = 10

// Policy constrains uploads for one content family. Empty AllowedExt accepts any
// extension, zero MaxSize means no limit.
type Policy struct {
	Dir        string
	AllowedExt []string
	MaxSize    int64
}

type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

func FromMultipart(fh *multipart.FileHeader) *File {
	return &File{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

type Stored struct {
	Path string
	Size int64
}

type Handler struct {
	Backend storage.Storage
	Now     func() time.Time
}

func NewHandler(store storage.Storage) *Handler {
	return &Handler{Backend: store, Now: time.Now}
}

// Ext returns the lower-cased extension of a client filename, or "" when it is
// missing or does not look like a plain extension.
func Ext(name string) string {
	ext := strings.ToLower(filepath.Ext(path.Base(strings.ReplaceAll(name, "\\", "/"))))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func GenerateName(now time.Time, ext string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString() + ext
}

// Check validates type and declared size without reading the file.
func (h *Handler) Check(p Policy, f *File) error {
	if len(p.AllowedExt) > 0 {
		if ext := Ext(f.Name); ext == "" || !slices.Contains(p.AllowedExt, ext) {
			return fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(f.Name))
		}
	}
	if p.MaxSize > 0 && f.Size > p.MaxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, f.Size, p.MaxSize)
	}
	return nil
}

// Store writes f under p.Dir with a generated name. The byte count is enforced
// again while copying since the declared size comes from the client.
func (h *Handler) Store(ctx context.Context, p Policy, f *File) (Stored, error) {
	if err := h.Check(p, f); err != nil {
		return Stored{}, err
	}

	src, err := f.Open()
	if err != nil {
		return Stored{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	key := path.Join(p.Dir, GenerateName(now(), Ext(f.Name)))

	var r io.Reader = src
	var lr *limitReader
	if p.MaxSize > 0 {
		lr = &limitReader{r: src, left: p.MaxSize}
		r = lr
	}

	n, err := h.Backend.Save(ctx, key, r)
	if err != nil {
		if lr != nil && lr.exceeded {
			return Stored{}, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, p.MaxSize)
		}
		return Stored{}, fmt.Errorf("save upload: %w", err)
	}
	return Stored{Path: key, Size: n}, nil
}

// Discard removes a stored upload. A file that is already gone is not an error.
func (h *Handler) Discard(ctx context.Context, key string) error {
	if err := h.Backend.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotExist) {
		return err
	}
	return nil
}

type limitReader struct {
	r        io.Reader
	left     int64
	exceeded bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.left < 0 {
		l.exceeded = true
		return 0, ErrFileTooLarge
	}
	// read one byte past the limit to detect oversize input
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		l.exceeded = true
		return 0, ErrFileTooLarge
	}
	return n, err
}
