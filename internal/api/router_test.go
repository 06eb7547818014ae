package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"swiftfiles/internal/client"
	"swiftfiles/internal/handlers"
	"swiftfiles/internal/logging"
	"swiftfiles/internal/repositories"
	"swiftfiles/internal/services"
	"swiftfiles/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, origins []string) (*fiber.App, string) {
	t.Helper()
	env := newRouterEnv(t, 1024, origins)
	return env.app, env.root
}

type routerEnv struct {
	app   *fiber.App
	root  string
	files *services.FileService
	token string
}

// newRouterEnv builds a router with the given upload ceiling and a token for "user-1".
func newRouterEnv(t *testing.T, maxUploadBytes int64, origins []string) routerEnv {
	t.Helper()
	log := logging.Discard()
	root := t.TempDir()
	blobs, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	authService := services.NewAuthService(repositories.NewMockUserRepository(), "secret", time.Hour, log)
	fileService := services.NewFileService(repositories.NewMockFileRepository(), blobs, nil, maxUploadBytes, log)
	token, _, err := authService.IssueToken("user-1")
	require.NoError(t, err)

	app := NewRouter(Options{
		AuthService:        authService,
		FileService:        fileService,
		Links:              handlers.LinkConfig{PublicBaseURL: "https://files.example.com"},
		StaticRoot:         root,
		CORSAllowedOrigins: origins,
		Logger:             log,
	})
	return routerEnv{app: app, root: root, files: fileService, token: token}
}

func multipartBody(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_HealthAndRoot(t *testing.T) {
	app, _ := newTestRouter(t, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	_, err = time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	text, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "SwiftFiles API is running", string(text))
}

func TestRouter_CORS(t *testing.T) {
	app, _ := newTestRouter(t, []string{"https://files.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/files/user", nil)
	req.Header.Set("Origin", "https://files.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://files.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_StaticUploads(t *testing.T) {
	app, root := newTestRouter(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "abc_note.txt"), []byte("hello"), 0o600))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/abc_note.txt", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "hello", string(data))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	require.NoError(t, err)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode, "directory listing is disabled")
}

func TestRouter_DeletedBlobNotServed(t *testing.T) {
	env := newRouterEnv(t, 1024, nil)

	body, contentType := multipartBody(t, "note.txt", []byte("0123456789"))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Metadata struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	blobURL, err := url.Parse(out.Metadata.URL)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(blobURL.Path, StaticPrefix+"/"), blobURL.Path)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, blobURL.Path, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "0123456789", string(data))

	req = httptest.NewRequest(http.MethodDelete, "/api/files/"+out.Metadata.ID, nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, blobURL.Path, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_UploadOverTransportLimit(t *testing.T) {
	const ceiling = 1 << 20
	env := newRouterEnv(t, ceiling, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.Shutdown() })
	baseURL := "http://" + ln.Addr().String()

	// known length, past ceiling plus multipart overhead
	body, contentType := multipartBody(t, "big.bin", make([]byte, ceiling+multipartOverhead+1<<20))
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/files/upload", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	var msg map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.NotEmpty(t, msg["message"])

	// chunked, as streamed by the API client
	_, err = client.New(baseURL).Upload(context.Background(), env.token, "big.bin", bytes.NewReader(make([]byte, ceiling+1<<20)))
	assert.True(t, client.IsStatus(err, http.StatusRequestEntityTooLarge), "got %v", err)

	files, err := env.files.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRouter_OversizedUpload(t *testing.T) {
	env := newRouterEnv(t, 1024, nil)

	body, contentType := multipartBody(t, "big.bin", make([]byte, 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var respBody map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&respBody))
	assert.NotEmpty(t, respBody["message"])
}

func TestRouter_UnknownRoute(t *testing.T) {
	app, _ := newTestRouter(t, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
