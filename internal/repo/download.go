package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/mylib/internal/models"
)

type DownloadRepo struct {
	DB *gorm.DB
}

// Increment bumps the counter in a single UPDATE so concurrent downloads never lose a count.
func (r *DownloadRepo) Increment(ctx context.Context, bookID uint) error {
	res := r.DB.WithContext(ctx).Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DownloadRepo) Record(ctx context.Context, userID, bookID uint) error {
	d := models.Download{UserID: &userID, BookID: bookID}
	return r.DB.WithContext(ctx).Create(&d).Error
}

func (r *DownloadRepo) CountForBook(ctx context.Context, bookID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Download{}).Where("book_id = ?", bookID).Count(&n).Error
	return n, err
}
