package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/util"
)

type Filter struct {
	Kind   string
	Search string
	// Page is 1-based, 0 returns every row.
	Page int
	Size int
}

// ContentRepo serves every content family. P is the pointer type of T so the
// family accessors on models.Record can be used on loaded rows.
type ContentRepo[T any, P interface {
	*T
	models.Record
}] struct {
	DB            *gorm.DB
	KindColumn    string
	// Searchable enables free-text search over the folded search_text column.
	Searchable bool
}

func NewContentRepo[T any, P interface {
	*T
	models.Record
}](db *gorm.DB, kindColumn string, searchable bool) *ContentRepo[T, P] {
	return &ContentRepo[T, P]{DB: db, KindColumn: kindColumn, Searchable: searchable}
}

// List returns newest rows first. Search is a substring match against the
// lower-cased search_text column, so case folding does not depend on the
// database collation. LIKE wildcards in the input are matched literally.
func (r *ContentRepo[T, P]) List(ctx context.Context, f Filter) ([]T, error) {
	q := r.DB.WithContext(ctx).Model(new(T))

	if f.Kind != "" {
		q = q.Where(clause.Eq{Column: clause.Column{Name: r.KindColumn}, Value: f.Kind})
	}

	if s := strings.TrimSpace(f.Search); s != "" && r.Searchable {
		pattern := "%" + escapeLike(models.FoldSearch(s)) + "%"
		q = q.Where(`search_text LIKE ? ESCAPE '\'`, pattern)
	}

	if f.Page > 0 {
		offset, limit := util.Window(f.Page, f.Size)
		q = q.Offset(offset).Limit(limit)
	}

	var items []T
	if err := q.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ContentRepo[T, P]) Get(ctx context.Context, id uint) (P, error) {
	var item T
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return P(&item), nil
}

func (r *ContentRepo[T, P]) Create(ctx context.Context, item P) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *ContentRepo[T, P]) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FilePaths returns every stored-file key referenced by the table.
func (r *ContentRepo[T, P]) FilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.DB.WithContext(ctx).Model(new(T)).
		Where("file_path IS NOT NULL AND file_path <> ''").
		Pluck("file_path", &paths).Error
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// BackfillSearchText fills search_text for rows written before the column existed.
func (r *ContentRepo[T, P]) BackfillSearchText(ctx context.Context) (int, error) {
	db := r.DB.WithContext(ctx)
	var batch []T
	n := 0
	res := db.Model(new(T)).Where("search_text IS NULL OR search_text = ''").
		FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				p := P(&batch[i])
				s, ok := any(p).(models.Searchable)
				if !ok {
					continue
				}
				if err := db.Model(p).UpdateColumn("search_text", s.SearchDocument()).Error; err != nil {
					return err
				}
				n++
			}
			return nil
		})
	return n, res.Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
