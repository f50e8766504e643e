package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/events"
	"github.com/Skotchmaster/mylib/internal/logging"
	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/repo"
	"github.com/Skotchmaster/mylib/internal/search"
	"github.com/Skotchmaster/mylib/internal/transport"
	"github.com/Skotchmaster/mylib/internal/upload"
)

// ContentService implements the content lifecycle for one family. File storage
// and the row insert are separate steps; a failed insert removes the stored file.
type ContentService[T any, P interface {
	*T
	models.Record
}] struct {
	Family  content.Family
	Repo    *repo.ContentRepo[T, P]
	Uploads *upload.Handler
	Events  events.Publisher
	Index   search.Indexer
}

func NewContentService[T any, P interface {
	*T
	models.Record
}](f content.Family, db *gorm.DB, uploads *upload.Handler, pub events.Publisher, idx search.Indexer) *ContentService[T, P] {
	return &ContentService[T, P]{
		Family:  f,
		Repo:    repo.NewContentRepo[T, P](db, f.KindField, len(f.Searchable) > 0),
		Uploads: uploads,
		Events:  pub,
		Index:   idx,
	}
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *ContentService[T, P]) kindFields(kind string) (category, typ string) {
	if s.Family.KindField == content.KindFieldCategory {
		return kind, ""
	}
	return "", kind
}

func (s *ContentService[T, P]) toResponse(p P) transport.ContentResponse {
	base := p.Base()
	resp := transport.ContentResponse{
		ID:          base.ID,
		Title:       base.Title,
		Description: base.Description,
		FileSize:    base.FileSize,
		UploadedBy:  base.UploadedBy,
		CreatedAt:   base.CreatedAt,
		FileURL:     s.Family.FileURL(base.FilePath),
	}
	resp.Category, resp.Type = s.kindFields(p.Kind())

	if a, ok := any(p).(models.Authored); ok {
		resp.Author = a.AuthorName()
	}
	if t, ok := any(p).(models.Texted); ok {
		resp.Content = t.Text()
	}
	if c, ok := any(p).(models.Counted); ok {
		n := c.Downloads()
		resp.DownloadCount = &n
	}
	if c, ok := any(p).(models.Covered); ok {
		resp.CoverImageURL = content.CoverURL(c.CoverImagePath())
	}
	return resp
}

func (s *ContentService[T, P]) List(ctx context.Context, f repo.Filter) ([]transport.ContentResponse, error) {
	items, err := s.Repo.List(ctx, f)
	if err != nil {
		logging.FromContext(ctx).Error(s.Family.Name+"_list_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	out := make([]transport.ContentResponse, 0, len(items))
	for i := range items {
		out = append(out, s.toResponse(P(&items[i])))
	}
	return out, nil
}

func (s *ContentService[T, P]) Get(ctx context.Context, id uint) (*transport.ContentResponse, error) {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		logging.FromContext(ctx).Error(s.Family.Name+"_get_failed", "status", 500, "id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	resp := s.toResponse(p)
	return &resp, nil
}

// Validate rejects a create request before anything is written.
func (s *ContentService[T, P]) Validate(req transport.CreateContentRequest, file *upload.File) error {
	ve := &ValidationError{}
	if strings.TrimSpace(req.Title) == "" {
		ve.Add("title", "title is required")
	}
	field := s.Family.KindField
	switch {
	case req.Kind == "":
		ve.Add(field, field+" is required")
	case !s.Family.ValidKind(req.Kind):
		ve.Add(field, field+" must be one of "+strings.Join(s.Family.Kinds, ", "))
	}
	if s.Family.FileRequired && file == nil {
		ve.Add(content.FileField, "file is required")
	}
	if err := ve.Err(); err != nil {
		return err
	}
	if file != nil {
		return s.Uploads.Check(s.Family.Upload, file)
	}
	return nil
}

func (s *ContentService[T, P]) Create(ctx context.Context, req transport.CreateContentRequest, file *upload.File, uploaderID *uint) (*transport.ContentSummary, error) {
	l := logging.FromContext(ctx).With("svc", s.Family.Name+".create")

	if err := s.Validate(req, file); err != nil {
		l.Warn(s.Family.Name+"_create_rejected", "status", 400, "error", err)
		return nil, err
	}

	var item T
	p := P(&item)
	base := p.Base()
	base.Title = strings.TrimSpace(req.Title)
	base.Description = nonEmpty(req.Description)
	base.UploadedBy = uploaderID
	p.SetKind(req.Kind)
	if a, ok := any(p).(models.Authored); ok {
		a.SetAuthorName(nonEmpty(req.Author))
	}
	if t, ok := any(p).(models.Texted); ok {
		t.SetText(nonEmpty(req.Body))
	}

	var storedKey string
	if file != nil {
		st, err := s.Uploads.Store(ctx, s.Family.Upload, file)
		if err != nil {
			if errors.Is(err, upload.ErrFileTooLarge) || errors.Is(err, upload.ErrUnsupportedFileType) {
				l.Warn(s.Family.Name+"_create_rejected", "status", 400, "error", err)
				return nil, err
			}
			l.Error(s.Family.Name+"_create_failed", "status", 500, "reason", "cannot store file", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		storedKey = st.Path
		size := st.Size
		base.FilePath = &storedKey
		base.FileSize = &size
	}

	if err := s.Repo.Create(ctx, p); err != nil {
		l.Error(s.Family.Name+"_create_failed", "status", 500, "reason", "cannot insert row", "error", err)
		if storedKey != "" {
			if derr := s.Uploads.Discard(context.WithoutCancel(ctx), storedKey); derr != nil {
				// left for the reconciliation sweep
				l.Error("orphaned_file", "key", storedKey, "error", derr)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	publish(ctx, s.Events, events.Event{
		Type:   events.Created(s.Family.Name),
		Family: s.Family.Name,
		ID:     base.ID,
		Title:  base.Title,
		UserID: uploaderID,
	})
	s.mirror(ctx, p)

	l.Info(s.Family.Name+"_created", "id", base.ID, "file", storedKey)

	summary := &transport.ContentSummary{ID: base.ID, Title: base.Title, FileURL: s.Family.FileURL(base.FilePath)}
	summary.Category, summary.Type = s.kindFields(p.Kind())
	if a, ok := any(p).(models.Authored); ok {
		summary.Author = a.AuthorName()
	}
	return summary, nil
}

// Delete removes the row and then its file. A file already gone counts as
// removed; any other storage error is logged and left for the sweep.
func (s *ContentService[T, P]) Delete(ctx context.Context, id uint, role string) error {
	l := logging.FromContext(ctx).With("svc", s.Family.Name+".delete", "id", id)

	if role != models.RoleAdmin {
		l.Warn(s.Family.Name+"_delete_rejected", "status", 403, "role", role)
		return ErrForbidden
	}

	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		l.Error(s.Family.Name+"_delete_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		l.Error(s.Family.Name+"_delete_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if fp := p.Base().FilePath; fp != nil && *fp != "" {
		if err := s.Uploads.Discard(context.WithoutCancel(ctx), *fp); err != nil {
			l.Error("orphaned_file", "key", *fp, "error", err)
		}
	}

	publish(ctx, s.Events, events.Event{Type: events.Deleted(s.Family.Name), Family: s.Family.Name, ID: id, Title: p.Base().Title})
	if s.Index != nil {
		if err := s.Index.Remove(ctx, s.Family.Name, id); err != nil {
			l.Warn("search_remove_failed", "error", err)
		}
	}

	l.Info(s.Family.Name + "_deleted")
	return nil
}

func (s *ContentService[T, P]) mirror(ctx context.Context, p P) {
	if s.Index == nil {
		return
	}
	base := p.Base()
	doc := search.Document{
		ID:          base.ID,
		Family:      s.Family.Name,
		Title:       base.Title,
		Kind:        p.Kind(),
		Description: base.Description,
		FileURL:     s.Family.FileURL(base.FilePath),
		CreatedAt:   base.CreatedAt,
	}
	if a, ok := any(p).(models.Authored); ok {
		doc.Author = a.AuthorName()
	}
	if err := s.Index.Index(ctx, doc); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "family", s.Family.Name, "id", base.ID, "error", err)
	}
}
