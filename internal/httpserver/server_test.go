package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/mylib/internal/content"
	"github.com/Skotchmaster/mylib/internal/db"
	"github.com/Skotchmaster/mylib/internal/db/dbtest"
	"github.com/Skotchmaster/mylib/internal/events"
	"github.com/Skotchmaster/mylib/internal/logging"
	authmw "github.com/Skotchmaster/mylib/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/mylib/internal/middleware/logging"
	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/repo"
	"github.com/Skotchmaster/mylib/internal/search"
	"github.com/Skotchmaster/mylib/internal/service"
	"github.com/Skotchmaster/mylib/internal/storage"
	"github.com/Skotchmaster/mylib/internal/tokens"
	"github.com/Skotchmaster/mylib/internal/transport"
	"github.com/Skotchmaster/mylib/internal/upload"
)

type testEnv struct {
	E     *echo.Echo
	DB    *gorm.DB
	Store *storage.Local
	Auth  *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := dbtest.New(t)
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	pub := events.Nop{}
	idx := search.Nop{}
	uploads := upload.NewHandler(store)
	users := &repo.UserRepo{DB: gdb}
	issuer := tokens.NewIssuer([]byte("http-secret"))
	authSvc := &service.AuthService{Users: users, Tokens: issuer, Events: pub}
	downloads := &service.DownloadService{Downloads: &repo.DownloadRepo{DB: gdb}, Events: pub}

	e := echo.New()
	e.Use(loggingmw.RequestLogger(logging.NewWithWriter(io.Discard, "error")))

	Register(e, &Deps{
		Auth:  &AuthHTTP{Svc: authSvc},
		Users: &UsersHTTP{Svc: &service.UserService{Users: users}},
		Books: &ContentHTTP[models.Book, *models.Book]{
			Svc:       service.NewContentService[models.Book, *models.Book](content.Books, gdb, uploads, pub, idx),
			Downloads: downloads,
		},
		MentalHealth: &ContentHTTP[models.MentalHealthResource, *models.MentalHealthResource]{
			Svc: service.NewContentService[models.MentalHealthResource, *models.MentalHealthResource](content.MentalHealth, gdb, uploads, pub, idx),
		},
		Entrepreneurship: &ContentHTTP[models.EntrepreneurshipContent, *models.EntrepreneurshipContent]{
			Svc: service.NewContentService[models.EntrepreneurshipContent, *models.EntrepreneurshipContent](content.Entrepreneurship, gdb, uploads, pub, idx),
		},
		Files: &FilesHTTP{Store: store},
		Guard: authmw.NewGuard(issuer),
		Ready: func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	return &testEnv{E: e, DB: gdb, Store: store, Auth: authSvc}
}

func (env *testEnv) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return env.do(req, token)
}

type formFile struct {
	name string
	data []byte
}

func (env *testEnv) doForm(path string, fields map[string]string, file *formFile, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if file != nil {
		fw, _ := mw.CreateFormFile(content.FileField, file.name)
		_, _ = fw.Write(file.data)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return env.do(req, token)
}

func (env *testEnv) registerAndLogin(t *testing.T, username, role string) string {
	t.Helper()

	rec := env.doJSON(http.MethodPost, "/api/auth/register",
		`{"username":"`+username+`","password":"secret123","role":"`+role+`"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.doJSON(http.MethodPost, "/api/auth/login", `{"username":"`+username+`","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res transport.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (env *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	require.NoError(t, env.Auth.BootstrapAdmin(context.Background(), "admin", "admin-pass"))
	res, err := env.Auth.Login(context.Background(), transport.LoginRequest{Username: "admin", Password: "admin-pass"})
	require.NoError(t, err)
	return res.Token
}

func fakePDF(size int) []byte {
	data := bytes.Repeat([]byte("0123456789abcdef"), size/16+1)[:size]
	copy(data, "%PDF-1.4\n")
	return data
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestUploadSearchDownloadServe(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "t1", models.RoleTeacher)

	pdf := fakePDF(2 << 20)
	rec := env.doForm("/api/books", map[string]string{
		"title":       "Mathematics Basics",
		"author":      "A. Teacher",
		"category":    "education",
		"description": "first steps",
	}, &formFile{name: "math.PDF", data: pdf}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Message string                   `json:"message"`
		Book    transport.ContentSummary `json:"book"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "book created", created.Message)
	assert.Equal(t, "education", created.Book.Category)
	require.NotNil(t, created.Book.FileURL)
	assert.True(t, strings.HasPrefix(*created.Book.FileURL, "/uploads/books/"))
	assert.True(t, strings.HasSuffix(*created.Book.FileURL, ".pdf"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/books?search=Math", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []transport.ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.Book.ID, list[0].ID)
	assert.Equal(t, *created.Book.FileURL, *list[0].FileURL)
	require.NotNil(t, list[0].FileSize)
	assert.EqualValues(t, len(pdf), *list[0].FileSize)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/books/1/download", nil), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/books/1", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got transport.ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.DownloadCount)
	assert.EqualValues(t, 1, *got.DownloadCount)

	rec = env.do(httptest.NewRequest(http.MethodGet, *created.Book.FileURL, nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdf, rec.Body.Bytes())
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "cross-origin", rec.Header().Get("Cross-Origin-Resource-Policy"))
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
}

func TestDownloadAttributesAuthenticatedUser(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.registerAndLogin(t, "t1", models.RoleTeacher)
	student := env.registerAndLogin(t, "s1", models.RoleStudent)

	rec := env.doForm("/api/books", map[string]string{"title": "Stories", "category": "mental_health"},
		&formFile{name: "s.txt", data: []byte("once")}, teacher)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/books/1/download", nil), student)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/books/1/download", nil), "garbage")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows int64
	require.NoError(t, env.DB.Model(&models.Download{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	var book models.Book
	require.NoError(t, env.DB.First(&book, 1).Error)
	assert.EqualValues(t, 2, book.DownloadCount)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/books/99/download", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookRejections(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.registerAndLogin(t, "t1", models.RoleTeacher)
	student := env.registerAndLogin(t, "s1", models.RoleStudent)
	pdf := &formFile{name: "b.pdf", data: fakePDF(64)}
	fields := map[string]string{"title": "Algebra", "category": "education"}

	rec := env.doForm("/api/books", fields, pdf, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doForm("/api/books", fields, pdf, student)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient permissions", messageOf(t, rec))

	rec = env.doForm("/api/books", map[string]string{"title": "Algebra", "category": "education", "isbn": "1"}, pdf, teacher)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doForm("/api/books", map[string]string{"title": "Algebra", "category": "poetry"}, pdf, teacher)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", messageOf(t, rec))

	rec = env.doForm("/api/books", fields, nil, teacher)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doForm("/api/books", fields, &formFile{name: "tool.exe", data: []byte("MZ")}, teacher)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, messageOf(t, rec), "unsupported file type")

	rec = env.doJSON(http.MethodPost, "/api/books", `{"title":"Algebra"}`, teacher)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	infos, err := env.Store.List(context.Background(), "books")
	require.NoError(t, err)
	assert.Empty(t, infos)

	var count int64
	require.NoError(t, env.DB.Model(&models.Book{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestContentIDsAndFilters(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.registerAndLogin(t, "t1", models.RoleTeacher)

	for _, f := range []map[string]string{
		{"title": "Calculus", "category": "education"},
		{"title": "Calm mind", "category": "mental_health"},
	} {
		rec := env.doForm("/api/books", f, &formFile{name: "x.epub", data: []byte("epub")}, teacher)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/books?category=mental_health", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []transport.ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Calm mind", list[0].Title)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/books", nil), "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Calm mind", list[0].Title)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/books?page=2&size=1", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Calculus", list[0].Title)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/books?page=x", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/books/abc", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/books/999", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteBookRemovesFile(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.registerAndLogin(t, "t1", models.RoleTeacher)
	admin := env.adminToken(t)

	rec := env.doForm("/api/books", map[string]string{"title": "Old", "category": "education"},
		&formFile{name: "old.pdf", data: fakePDF(128)}, teacher)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Book transport.ContentSummary `json:"book"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/books/1", nil), teacher)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/books/1", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "book deleted", messageOf(t, rec))

	rec = env.do(httptest.NewRequest(http.MethodGet, *created.Book.FileURL, nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/books/1", nil), admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMentalHealthWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.registerAndLogin(t, "t1", models.RoleTeacher)

	rec := env.doForm("/api/mental-health", map[string]string{
		"title":   "Breathing",
		"type":    "exercise",
		"content": "Breathe in for four seconds.",
	}, nil, teacher)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Message  string                   `json:"message"`
		Resource transport.ContentSummary `json:"resource"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "exercise", created.Resource.Type)
	assert.Nil(t, created.Resource.FileURL)

	rec = env.doForm("/api/mental-health", map[string]string{"title": "x", "type": "exercise", "author": "me"}, nil, teacher)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/mental-health?type=exercise", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []transport.ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Content)
	assert.Equal(t, "Breathe in for four seconds.", *list[0].Content)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/mental-health/1/download", nil), "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "t1", models.RoleTeacher)

	rec := env.doJSON(http.MethodPost, "/api/auth/register", `{"username":"t1","password":"secret123","role":"teacher"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already exists", messageOf(t, rec))

	rec = env.doJSON(http.MethodPost, "/api/auth/register", `{"username":"x","password":"secret123","role":"student","admin":true}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(http.MethodPost, "/api/auth/register", `{"username":"x","password":"123","role":"owner"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Errors []service.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verr))
	assert.Len(t, verr.Errors, 2)

	rec = env.doJSON(http.MethodPost, "/api/auth/login", `{"username":"t1","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.doJSON(http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", messageOf(t, rec))
}

func TestUsersEndpoints(t *testing.T) {
	env := newTestEnv(t)
	student := env.registerAndLogin(t, "s1", models.RoleStudent)
	admin := env.adminToken(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/users", nil), student)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []transport.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), student)
	require.Equal(t, http.StatusOK, rec.Code)
	var me transport.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "s1", me.Username)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndFiles(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"MYLib API is running"}`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/health/live", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := env.Store.Save(context.Background(), "covers/c.png", strings.NewReader("png"))
	require.NoError(t, err)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/uploads/covers/c.png", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodHead, "/uploads/covers/c.png", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/uploads/secrets/c.png", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/uploads/covers/missing.png", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
