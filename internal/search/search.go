// Package search mirrors content records into an external search index. The
// mirror is write-only and best effort; listing never depends on it.
package search

import (
	"context"
	"time"
)

type Document struct {
	ID          uint      `json:"id"`
	Family      string    `json:"family"`
	Title       string    `json:"title"`
	Kind        string    `json:"kind"`
	Author      *string   `json:"author,omitempty"`
	Description *string   `json:"description,omitempty"`
	FileURL     *string   `json:"file_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Indexer interface {
	Index(ctx context.Context, doc Document) error
	Remove(ctx context.Context, family string, id uint) error
}

type Nop struct{}

func (Nop) Index(context.Context, Document) error { return nil }
func (Nop) Remove(context.Context, string, uint) error { return nil }

func IndexName(family string) string {
	return "mylib-" + family
}
