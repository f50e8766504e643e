package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/events"
	"github.com/Skotchmaster/mylib/internal/logging"
	"github.com/Skotchmaster/mylib/internal/repo"
)

type DownloadService struct {
	Downloads *repo.DownloadRepo
	Events    events.Publisher
}

// Record counts one download of bookID. The per-user event is written only
// when userID is set and a failure to write it does not fail the download.
func (s *DownloadService) Record(ctx context.Context, bookID uint, userID *uint) error {
	l := logging.FromContext(ctx).With("svc", "download.record", "book_id", bookID)

	if err := s.Downloads.Increment(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		l.Error("download_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if userID != nil {
		if err := s.Downloads.Record(ctx, *userID, bookID); err != nil {
			l.Warn("download_event_failed", "user_id", *userID, "error", err)
		}
	}

	publish(ctx, s.Events, events.Event{
		Type:   events.TypeBookDownloaded,
		Family: content.Books.Name,
		ID:     bookID,
		UserID: userID,
	})
	return nil
}
