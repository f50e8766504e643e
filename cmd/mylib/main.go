package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/mylib/internal/config"
	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/db"
	"github.com/Skotchmaster/mylib/internal/events"
	"github.com/Skotchmaster/mylib/internal/httpserver"
	"github.com/Skotchmaster/mylib/internal/logging"
	authmw "github.com/Skotchmaster/mylib/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/mylib/internal/middleware/logging"
	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/repo"
	"github.com/Skotchmaster/mylib/internal/search"
	"github.com/Skotchmaster/mylib/internal/service"
	"github.com/Skotchmaster/mylib/internal/storage"
	"github.com/Skotchmaster/mylib/internal/tokens"
	"github.com/Skotchmaster/mylib/internal/upload"
)

type searchBackfiller interface {
	BackfillSearchText(ctx context.Context) (int, error)
}

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if cfg.InsecureSecret() {
		logger.Warn("insecure_jwt_secret", "reason", "JWT_SECRET is not set, using the built-in default")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, db.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}

	if cfg.StorageBackend == storage.BackendS3 {
		config.MustNonEmpty(cfg.S3.Bucket, "S3_BUCKET")
	}
	store, err := storage.New(ctx, cfg.StorageBackend, cfg.UploadDir, storage.S3Config(cfg.S3))
	if err != nil {
		cancel()
		log.Fatalf("storage: %v", err)
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			cancel()
			log.Fatalf("kafka: %v", err)
		}
		pub = k
	}

	var idx search.Indexer = search.Nop{}
	if cfg.ESURL != "" {
		es, err := search.NewElastic(ctx, search.ElasticConfig{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			logger.Warn("search_mirror_disabled", "error", err)
		} else {
			idx = es
		}
	}
	cancel()

	issuer := tokens.NewIssuer(cfg.JWTSecret)
	users := &repo.UserRepo{DB: gdb}
	authSvc := &service.AuthService{Users: users, Tokens: issuer, Events: pub}

	bootCtx, bootCancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), 10*time.Second)
	if err := authSvc.BootstrapAdmin(bootCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		bootCancel()
		log.Fatalf("bootstrap admin: %v", err)
	}
	bootCancel()

	uploads := upload.NewHandler(store)
	downloads := &service.DownloadService{Downloads: &repo.DownloadRepo{DB: gdb}, Events: pub}
	books := service.NewContentService[models.Book, *models.Book](content.Books, gdb, uploads, pub, idx)
	mentalHealth := service.NewContentService[models.MentalHealthResource, *models.MentalHealthResource](content.MentalHealth, gdb, uploads, pub, idx)
	entrepreneurship := service.NewContentService[models.EntrepreneurshipContent, *models.EntrepreneurshipContent](content.Entrepreneurship, gdb, uploads, pub, idx)

	backfillCtx, backfillCancel := context.WithTimeout(context.Background(), time.Minute)
	for _, r := range []searchBackfiller{books.Repo, mentalHealth.Repo, entrepreneurship.Repo} {
		n, err := r.BackfillSearchText(backfillCtx)
		if err != nil {
			backfillCancel()
			log.Fatalf("backfill search text: %v", err)
		}
		if n > 0 {
			logger.Info("search_text_backfilled", "rows", n)
		}
	}
	backfillCancel()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	httpserver.Register(e, &httpserver.Deps{
		Auth:  &httpserver.AuthHTTP{Svc: authSvc},
		Users: &httpserver.UsersHTTP{Svc: &service.UserService{Users: users}},
		Books: &httpserver.ContentHTTP[models.Book, *models.Book]{Svc: books, Downloads: downloads},
		MentalHealth: &httpserver.ContentHTTP[models.MentalHealthResource, *models.MentalHealthResource]{
			Svc: mentalHealth,
		},
		Entrepreneurship: &httpserver.ContentHTTP[models.EntrepreneurshipContent, *models.EntrepreneurshipContent]{
			Svc: entrepreneurship,
		},
		Files:         &httpserver.FilesHTTP{Store: store},
		Guard:         authmw.NewGuard(issuer),
		Ready:         func(ctx context.Context) error { return db.Ping(ctx, gdb) },
		AuthRateLimit: cfg.AuthRateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_started", "addr", srv.Addr, "storage", cfg.StorageBackend, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_failed", "error", err)
	}
	if err := pub.Close(); err != nil {
		logger.Warn("publisher_close_failed", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Warn("db_close_failed", "error", err)
	}

	logger.Info("server_stopped")
}
