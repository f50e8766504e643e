package events

import (
	"context"
	"time"
)

const (
	TypeUserRegistered = "user_registered"
	TypeBookDownloaded = "book_downloaded"
)

func Created(family string) string { return family + "_created" }
func Deleted(family string) string { return family + "_deleted" }

type Event struct {
	Type   string    `json:"type"`
	Family string    `json:"family,omitempty"`
	ID     uint      `json:"id"`
	Title  string    `json:"title,omitempty"`
	UserID *uint     `json:"user_id,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher delivers domain events. Callers treat delivery as best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error { return nil }
