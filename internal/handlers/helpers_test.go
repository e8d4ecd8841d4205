package handlers_test

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/config"
	"NewsBlog/internal/handlers"
	"NewsBlog/internal/middleware"
	"NewsBlog/internal/repo"
	"NewsBlog/internal/service"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testServer struct {
	router  http.Handler
	content *service.ContentService
	assets  *assets.Manager
}

// newTestServer поднимает весь стек: SQLite в памяти, каталог картинок во временной папке
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repo.InitDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zap.NewNop().Sugar()
	cfg := &config.Config{AuthSecret: testSecret, StaticDir: t.TempDir(), UploadMaxSizeMB: 1}
	am, err := assets.NewManager(cfg.StaticDir, logger)
	require.NoError(t, err)

	store := repo.NewStore(db)
	users := service.NewUserService(store.Users).WithCost(bcrypt.MinCost)
	content := service.NewContentService(store, users, am, logger)

	h := handlers.NewHandler(content, users, logger, cfg)
	return &testServer{router: h.Router, content: content, assets: am}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64) {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, middleware.SetLoginCookie(rr, userID, testSecret))
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

type formFile struct {
	field, name, body string
}

// multipartRequest собирает форму с полями и файлами
func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&m))
	return m
}

func idOf(t *testing.T, rr *httptest.ResponseRecorder) int64 {
	t.Helper()
	id, ok := decodeBody(t, rr)["id"].(float64)
	require.True(t, ok, "id expected in %s", rr.Body.String())
	return int64(id)
}
