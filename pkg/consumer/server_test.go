package consumer

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/runlayer/sidemount/pkg/types"
)

func newTestServer(t *testing.T, checker MountChecker) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	s := NewServer(types.ConsumerConfig{
		MountPath: dir,
		Server:    types.ServerConfig{Port: 0},
	}, checker, nil, io.Discard, false)

	return s, dir
}

func TestWorkspacePathEscapes(t *testing.T) {
	s, dir := newTestServer(t, &fakeChecker{})

	resolved, err := s.workspacePath("projects/main.go")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "projects/main.go"), resolved)

	resolved, err = s.workspacePath("")
	assert.NoError(t, err)
	assert.Equal(t, dir, resolved)

	// Traversal collapses inside the root rather than escaping it
	resolved, err = s.workspacePath("../../etc/passwd")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "etc/passwd"), resolved)
}

func TestWriteThenReadFile(t *testing.T) {
	s, dir := newTestServer(t, &fakeChecker{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/files/content?path=projects/hello.txt", strings.NewReader("hello world"))
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	content, err := os.ReadFile(filepath.Join(dir, "projects/hello.txt"))
	assert.NoError(t, err)
	assert.Equal(t, "hello world", string(content))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/content?path=projects/hello.txt", nil)
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
}

func TestListFiles(t *testing.T) {
	s, dir := newTestServer(t, &fakeChecker{})

	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	assert.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a.txt")
	assert.Contains(t, rec.Body.String(), "sub")
}

func TestListFilesMissingDir(t *testing.T) {
	s, _ := newTestServer(t, &fakeChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files?path=nope", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadinessReflectsMountStatus(t *testing.T) {
	// Mounted on the first call, gone afterwards
	checker := &fakeChecker{mountedAfter: 0}
	s, _ := newTestServer(t, checker)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	gone := &fakeChecker{mountedAfter: 1 << 30}
	s, _ = newTestServer(t, gone)

	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestLogsAreStructured(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	s := NewServer(types.ConsumerConfig{
		MountPath: dir,
		Server:    types.ServerConfig{Port: 0},
	}, &fakeChecker{}, nil, &buf, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	// One zerolog JSON line with the request fields
	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"URI":"/api/v1/files"`)
	assert.Contains(t, line, `"status":200`)

	// Supervisor traffic stays out of the log stream
	buf.Reset()
	for _, path := range []string{"/healthz", "/readyz"} {
		req = httptest.NewRequest(http.MethodGet, path, nil)
		rec = httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
	}
	assert.Empty(t, buf.String())
}

func TestHealthAlwaysOK(t *testing.T) {
	s, _ := newTestServer(t, &fakeChecker{mountedAfter: 1 << 30})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
