package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var Roles = []string{RoleAdmin, RoleTeacher, RoleStudent}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"size:255;unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"size:16;not null"         json:"role"`
	CreatedAt    time.Time `gorm:"not null"                 json:"created_at"`
}

// Content holds the columns every content family shares.
type Content struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Title       string  `gorm:"size:255;not null"`
	Description *string `gorm:"type:text"`
	FilePath    *string `gorm:"size:500"`
	FileSize    *int64
	UploadedBy  *uint     `gorm:"index"`
	Uploader    *User     `gorm:"foreignKey:UploadedBy;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time `gorm:"not null;index"`

	// SearchText is the lower-cased text free-text search runs against.
	SearchText string `gorm:"type:text;not null;default:''"`
}

func (c *Content) Base() *Content { return c }

type Book struct {
	Content
	Author        *string `gorm:"size:255"`
	Category      string  `gorm:"size:32;not null;index"`
	CoverImage    *string `gorm:"size:500"`
	DownloadCount int64   `gorm:"not null;default:0"`
}

func (Book) TableName() string { return "books" }

func (b *Book) Kind() string { return b.Category }
func (b *Book) SetKind(k string) { b.Category = k }
func (b *Book) AuthorName() *string { return b.Author }
func (b *Book) SetAuthorName(a *string) { b.Author = a }
func (b *Book) Downloads() int64 { return b.DownloadCount }
func (b *Book) CoverImagePath() *string { return b.CoverImage }
func (b *Book) SearchDocument() string {
	return searchDocument(b.Title, b.Author, b.Description)
}

func (b *Book) BeforeSave(*gorm.DB) error {
	b.SearchText = b.SearchDocument()
	return nil
}

type MentalHealthResource struct {
	Content
	Type string  `gorm:"size:32;not null;index"`
	Body *string `gorm:"column:content;type:text"`
}

func (MentalHealthResource) TableName() string { return "mental_health_resources" }

func (r *MentalHealthResource) Kind() string { return r.Type }
func (r *MentalHealthResource) SetKind(k string) { r.Type = k }
func (r *MentalHealthResource) Text() *string { return r.Body }
func (r *MentalHealthResource) SetText(t *string) { r.Body = t }
func (r *MentalHealthResource) SearchDocument() string {
	return searchDocument(r.Title, r.Description, r.Body)
}

func (r *MentalHealthResource) BeforeSave(*gorm.DB) error {
	r.SearchText = r.SearchDocument()
	return nil
}

type EntrepreneurshipContent struct {
	Content
	Type string  `gorm:"size:32;not null;index"`
	Body *string `gorm:"column:content;type:text"`
}

func (EntrepreneurshipContent) TableName() string { return "entrepreneurship_content" }

func (e *EntrepreneurshipContent) Kind() string { return e.Type }
func (e *EntrepreneurshipContent) SetKind(k string) { e.Type = k }
func (e *EntrepreneurshipContent) Text() *string { return e.Body }
func (e *EntrepreneurshipContent) SetText(t *string) { e.Body = t }
func (e *EntrepreneurshipContent) SearchDocument() string {
	return searchDocument(e.Title, e.Description, e.Body)
}

func (e *EntrepreneurshipContent) BeforeSave(*gorm.DB) error {
	e.SearchText = e.SearchDocument()
	return nil
}

// Download is one tracked download of a book by an authenticated user.
type Download struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	UserID       *uint     `gorm:"index"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE"`
	BookID       uint      `gorm:"not null;index"`
	Book         *Book     `gorm:"constraint:OnDelete:CASCADE"`
	DownloadedAt time.Time `gorm:"autoCreateTime"`
}

// Record is implemented by pointers to every content family model.
type Record interface {
	Base() *Content
	Kind() string
	SetKind(string)
}

// Authored is implemented by families that carry an author column.
type Authored interface {
	AuthorName() *string
	SetAuthorName(*string)
}

// Counted is implemented by families that track downloads.
type Counted interface {
	Downloads() int64
}

// Texted is implemented by families that carry inline text content.
type Texted interface {
	Text() *string
	SetText(*string)
}

// Searchable is implemented by families whose rows keep a folded search document.
type Searchable interface {
	SearchDocument() string
}

// FoldSearch lower-cases s with full Unicode case mapping, matching how
// search documents are stored.
func FoldSearch(s string) string {
	return strings.ToLower(s)
}

// searchDocument joins the searchable fields with newlines so a match cannot
// span two fields.
func searchDocument(title string, extra ...*string) string {
	var b strings.Builder
	b.WriteString(FoldSearch(title))
	for _, p := range extra {
		if p != nil && *p != "" {
			b.WriteByte('\n')
			b.WriteString(FoldSearch(*p))
		}
	}
	return b.String()
}

type Covered interface {
	CoverImagePath() *string
}

func All() []any {
	return []any{&User{}, &Book{}, &MentalHealthResource{}, &EntrepreneurshipContent{}, &Download{}}
}
