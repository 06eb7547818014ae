package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"swiftfiles/internal/api"
	"swiftfiles/internal/client"
	"swiftfiles/internal/handlers"
	"swiftfiles/internal/logging"
	"swiftfiles/internal/repositories"
	"swiftfiles/internal/services"
	"swiftfiles/internal/storage"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *client.Session {
	t.Helper()
	log := logging.Discard()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	app := api.NewRouter(api.Options{
		AuthService: services.NewAuthService(repositories.NewMockUserRepository(), "secret", time.Hour, log),
		FileService: services.NewFileService(repositories.NewMockFileRepository(), blobs, nil, 1<<20, log),
		Links:       handlers.LinkConfig{PublicBaseURL: "https://files.example.com"},
		Logger:      log,
	})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	s, err := client.NewSession(client.New(srv.URL), &client.MemoryTokenStore{})
	require.NoError(t, err)
	return s
}

func runCmd(t *testing.T, s *client.Session, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(s, strings.NewReader(stdin), &out, &errOut).Run(context.Background(), args)
	return out.String() + errOut.String(), err
}

func TestApp_Workflow(t *testing.T) {
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = realIsTerminal })

	s := newTestSession(t)

	out, err := runCmd(t, s, "secret1\n", "register", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created for alice@example.com")

	out, err = runCmd(t, s, "alice@example.com\nsecret1\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice@example.com")

	out, err = runCmd(t, s, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@example.com")

	out, err = runCmd(t, s, "", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No files yet")

	dir := t.TempDir()
	src := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0o600))

	out, err = runCmd(t, s, "", "upload", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded note.txt (10 B)")
	assert.Contains(t, out, "https://files.example.com/share/")

	files, err := s.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	file := files[0]

	out, err = runCmd(t, s, "", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, file.ShareID)

	out, err = runCmd(t, s, "", "info", file.ShareID)
	require.NoError(t, err)
	assert.Contains(t, out, "Name:     note.txt")

	dest := filepath.Join(dir, "copy.txt")
	_, err = runCmd(t, s, "", "download", "-o", dest, file.ShareID)
	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))

	out, err = runCmd(t, s, "", "download", "-o", "-", file.ShareID)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", out)

	_, err = runCmd(t, s, "", "rm", file.ID)
	require.NoError(t, err)

	_, err = runCmd(t, s, "", "info", file.ShareID)
	assert.True(t, client.IsStatus(err, 404))

	out, err = runCmd(t, s, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = runCmd(t, s, "", "ls")
	assert.ErrorIs(t, err, client.ErrNotSignedIn)
}

func TestApp_Usage(t *testing.T) {
	s, err := client.NewSession(client.New("http://127.0.0.1:0"), &client.MemoryTokenStore{})
	require.NoError(t, err)

	tests := [][]string{
		nil,
		{"bogus"},
		{"upload"},
		{"info"},
		{"rm", "a", "b"},
		{"download"},
		{"download", "-x", "id"},
	}
	for _, args := range tests {
		_, err := runCmd(t, s, "", args...)
		assert.ErrorIs(t, err, ErrUsage, "args %v", args)
	}

	out, err := runCmd(t, s, "", "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: swiftctl")
}

var realIsTerminal = isTerminal

func TestGetPassword(t *testing.T) {
	t.Cleanup(func() {
		isTerminal = realIsTerminal
		readPassword = realReadPassword
	})

	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("hunter22"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(bufio.NewReader(strings.NewReader("")), &out)
	require.NoError(t, err)
	assert.Equal(t, "hunter22", pw)

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword(bufio.NewReader(strings.NewReader("")), &out)
	assert.Error(t, err)

	isTerminal = func(int) bool { return false }
	pw, err = GetPassword(bufio.NewReader(strings.NewReader("piped\n")), &out)
	require.NoError(t, err)
	assert.Equal(t, "piped", pw)
}

var realReadPassword = readPassword

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("hello world\n")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())

	got, err = GetSimpleText(bufio.NewReader(strings.NewReader("lastline")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "Name?", &out)
	assert.Error(t, err)
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "note.txt", localName("note.txt", "x"))
	assert.Equal(t, "passwd", localName("../../etc/passwd", "x"))
	assert.Equal(t, "evil.exe", localName(`..\..\evil.exe`, "x"))
	assert.Equal(t, "x", localName("", "x"))
	assert.Equal(t, "x", localName("..", "x"))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "0 B", humanSize(0))
	assert.Equal(t, "1023 B", humanSize(1023))
	assert.Equal(t, "1.0 KiB", humanSize(1024))
	assert.Equal(t, "1.5 MiB", humanSize(3<<19))
}
