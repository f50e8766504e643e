// Command mylib-sweep deletes stored uploads that no content row references.
// Run it out of band, e.g. from cron.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Skotchmaster/mylib/internal/config"
	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/db"
	"github.com/Skotchmaster/mylib/internal/logging"
	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/repo"
	"github.com/Skotchmaster/mylib/internal/storage"
	"github.com/Skotchmaster/mylib/internal/sweep"
)

func main() {
	cfg := config.Load()

	dryRun := flag.Bool("dry-run", false, "report orphans without deleting them")
	grace := flag.Duration("grace", cfg.SweepGrace, "keep files younger than this")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline")
	flag.Parse()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName+"-sweep")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), *timeout)
	defer cancel()

	gdb, err := db.Open(ctx, db.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer func() { _ = db.Close(gdb) }()

	if cfg.StorageBackend == storage.BackendS3 {
		config.MustNonEmpty(cfg.S3.Bucket, "S3_BUCKET")
	}
	store, err := storage.New(ctx, cfg.StorageBackend, cfg.UploadDir, storage.S3Config(cfg.S3))
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	targets := []sweep.Target{
		{
			Family: content.Books.Name,
			Dir:    content.Books.Upload.Dir,
			Refs:   repo.NewContentRepo[models.Book, *models.Book](gdb, content.Books.KindField, false),
		},
		{
			Family: content.MentalHealth.Name,
			Dir:    content.MentalHealth.Upload.Dir,
			Refs:   repo.NewContentRepo[models.MentalHealthResource, *models.MentalHealthResource](gdb, content.MentalHealth.KindField, false),
		},
		{
			Family: content.Entrepreneurship.Name,
			Dir:    content.Entrepreneurship.Upload.Dir,
			Refs:   repo.NewContentRepo[models.EntrepreneurshipContent, *models.EntrepreneurshipContent](gdb, content.Entrepreneurship.KindField, false),
		},
	}

	reports, err := sweep.Run(ctx, store, targets, sweep.Options{Grace: *grace, DryRun: *dryRun})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(reports)
	if err != nil {
		logger.Error("sweep_failed", "error", err)
		os.Exit(1)
	}
}
