package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/db/dbtest"
	"github.com/Skotchmaster/mylib/internal/events"
	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/repo"
	"github.com/Skotchmaster/mylib/internal/search"
	"github.com/Skotchmaster/mylib/internal/storage"
	"github.com/Skotchmaster/mylib/internal/tokens"
	"github.com/Skotchmaster/mylib/internal/upload"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingIndexer struct {
	mu      sync.Mutex
	docs    map[uint]search.Document
	removed []uint
}

func (r *recordingIndexer) Index(_ context.Context, doc search.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *recordingIndexer) Remove(_ context.Context, _ string, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
	delete(r.docs, id)
	return nil
}

// failingStore wraps a storage and fails Delete, simulating a broken backend.
type failingStore struct {
	storage.Storage
}

func (f failingStore) Delete(context.Context, string) error {
	return io.ErrUnexpectedEOF
}

type testEnv struct {
	DB      *gorm.DB
	Store   *storage.Local
	Uploads *upload.Handler
	Pub     *recordingPublisher
	Index   *recordingIndexer
	Books   *ContentService[models.Book, *models.Book]
	MH      *ContentService[models.MentalHealthResource, *models.MentalHealthResource]
	Auth    *AuthService
	Users   *UserService
	DL      *DownloadService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	uploads := upload.NewHandler(store)
	pub := &recordingPublisher{}
	idx := &recordingIndexer{docs: map[uint]search.Document{}}
	users := &repo.UserRepo{DB: db}

	return &testEnv{
		DB:      db,
		Store:   store,
		Uploads: uploads,
		Pub:     pub,
		Index:   idx,
		Books:   NewContentService[models.Book, *models.Book](content.Books, db, uploads, pub, idx),
		MH:      NewContentService[models.MentalHealthResource, *models.MentalHealthResource](content.MentalHealth, db, uploads, pub, idx),
		Auth: &AuthService{
			Users:  users,
			Tokens: &tokens.Issuer{Secret: []byte("svc-secret"), TTL: time.Hour},
			Events: pub,
		},
		Users: &UserService{Users: users},
		DL:    &DownloadService{Downloads: &repo.DownloadRepo{DB: db}, Events: pub},
	}
}

func (e *testEnv) storedFiles(t *testing.T, dir string) []storage.Info {
	t.Helper()
	infos, err := e.Store.List(context.Background(), dir)
	require.NoError(t, err)
	return infos
}

func memFile(name, data string) *upload.File {
	return &upload.File{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(data)), nil },
	}
}

func strp(s string) *string { return &s }
