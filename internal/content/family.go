// Package content describes the three content families served by the library.
package content

import (
	"path"
	"slices"

	"github.com/Skotchmaster/mylib/internal/upload"
)

const MaxUploadSize = 50 << 20

// FileField is the multipart field carrying the upload.
const FileField = "file"

const (
	KindFieldCategory = "category"
	KindFieldType     = "type"
)

type Family struct {
	// Name is the event and search-index name, e.g. "book".
	Name string
	// Route is the URL segment under /api.
	Route string
	// Envelope is the JSON key of the created item in create responses.
	Envelope string
	// KindField is both the request field and the column holding the kind.
	KindField string
	Kinds     []string
	// Fields lists the multipart text fields accepted besides KindField.
	Fields       []string
	FileRequired bool
	Upload       upload.Policy
	// Searchable lists the fields folded into the search document, empty disables search.
	Searchable []string
	// Downloads enables download tracking.
	Downloads bool
}

func (f Family) ValidKind(kind string) bool {
	return slices.Contains(f.Kinds, kind)
}

// AcceptsField reports whether name is a known multipart field of the family.
func (f Family) AcceptsField(name string) bool {
	return name == f.KindField || name == FileField || slices.Contains(f.Fields, name)
}

// FileURL derives the public URL from a stored key. Only the base name is used
// so the raw storage path never leaks.
func (f Family) FileURL(stored *string) *string {
	return publicURL(f.Upload.Dir, stored)
}

func CoverURL(stored *string) *string {
	return publicURL(CoversDir, stored)
}

func publicURL(dir string, stored *string) *string {
	if stored == nil || *stored == "" {
		return nil
	}
	base := path.Base(*stored)
	if base == "." || base == "/" {
		return nil
	}
	u := "/uploads/" + dir + "/" + base
	return &u
}

const CoversDir = "covers"

var Books = Family{
	Name:         "book",
	Route:        "books",
	Envelope:     "book",
	KindField:    KindFieldCategory,
	Kinds:        []string{"education", "mental_health", "entrepreneurship"},
	Fields:       []string{"title", "author", "description"},
	FileRequired: true,
	Upload: upload.Policy{
		Dir:        "books",
		AllowedExt: []string{".pdf", ".epub", ".txt"},
		MaxSize:    MaxUploadSize,
	},
	Searchable: []string{"title", "author", "description"},
	Downloads:  true,
}

var MentalHealth = Family{
	Name:      "mental_health_resource",
	Route:     "mental-health",
	Envelope:  "resource",
	KindField: KindFieldType,
	Kinds:     []string{"exercise", "story"},
	Fields:    []string{"title", "content", "description"},
	Upload:    upload.Policy{Dir: "mental-health"},
}

var Entrepreneurship = Family{
	Name:      "entrepreneurship_content",
	Route:     "entrepreneurship",
	Envelope:  "content",
	KindField: KindFieldType,
	Kinds:     []string{"lesson", "case_study", "book"},
	Fields:    []string{"title", "content", "description"},
	Upload:    upload.Policy{Dir: "entrepreneurship"},
}

func All() []Family {
	return []Family{Books, MentalHealth, Entrepreneurship}
}

// ServedDirs lists the directories reachable under /uploads.
func ServedDirs() []string {
	dirs := []string{CoversDir}
	for _, f := range All() {
		dirs = append(dirs, f.Upload.Dir)
	}
	return dirs
}
