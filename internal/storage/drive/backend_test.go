package drive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JakeFAU/annual-report-harvester/internal/archive"
)

type fakeDrive struct {
	mu          sync.Mutex
	queries     []string
	listResult  string
	created     []map[string]any
	uploads     int
	uploadBody  string
	permissions []map[string]any
	failPerms   bool
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/permissions"):
		if f.failPerms {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"forbidden"}}`)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.permissions = append(f.permissions, body)
		_, _ = io.WriteString(w, `{"id":"perm-1"}`)
	case strings.HasPrefix(r.URL.Path, "/upload/"):
		f.uploads++
		data, _ := io.ReadAll(r.Body)
		f.uploadBody = string(data)
		_, _ = io.WriteString(w, `{"id":"file-1"}`)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, f.listResult)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		_, _ = io.WriteString(w, `{"id":"folder-9"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestBackend(t *testing.T, fake *fakeDrive) *Backend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	b, err := NewWithService(svc)
	require.NoError(t, err)
	return b
}

func TestFolderQuery(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"mimeType = 'application/vnd.google-apps.folder' and name = 'archive' and trashed = false",
		folderQuery("archive", ""))
	require.Equal(t,
		`mimeType = 'application/vnd.google-apps.folder' and name = 'Bob\'s \\ Co' and trashed = false and 'p1' in parents`,
		folderQuery(`Bob's \ Co`, "p1"))
}

func TestNewWithServiceRequiresService(t *testing.T) {
	t.Parallel()

	_, err := NewWithService(nil)
	require.Error(t, err)
}

func TestFindFolder(t *testing.T) {
	t.Parallel()

	fake := &fakeDrive{listResult: `{"files":[{"id":"folder-1","name":"Banks"}]}`}
	b := newTestBackend(t, fake)

	id, found, err := b.FindFolder(context.Background(), "Banks", "root-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "folder-1", id)
	require.Len(t, fake.queries, 1)
	require.Contains(t, fake.queries[0], "'root-1' in parents")

	fake.listResult = `{"files":[]}`
	_, found, err = b.FindFolder(context.Background(), "Banks", "")
	require.NoError(t, err)
	require.False(t, found)
}

func TestCreateFolderOmitsEmptyParent(t *testing.T) {
	t.Parallel()

	fake := &fakeDrive{}
	b := newTestBackend(t, fake)

	id, err := b.CreateFolder(context.Background(), "archive", "")
	require.NoError(t, err)
	require.Equal(t, "folder-9", id)
	require.Equal(t, archive.FolderMimeType, fake.created[0]["mimeType"])
	require.NotContains(t, fake.created[0], "parents")

	_, err = b.CreateFolder(context.Background(), "Banks", "folder-9")
	require.NoError(t, err)
	require.Equal(t, []any{"folder-9"}, fake.created[1]["parents"])
}

func TestCreateFileUploadsMedia(t *testing.T) {
	t.Parallel()

	fake := &fakeDrive{}
	b := newTestBackend(t, fake)

	id, err := b.CreateFile(context.Background(), archive.File{
		Name:        "Acme",
		ParentID:    "folder-9",
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.4 body"),
	})
	require.NoError(t, err)
	require.Equal(t, "file-1", id)
	require.Equal(t, 1, fake.uploads)
	require.Contains(t, fake.uploadBody, "%PDF-1.4 body")
	require.Contains(t, fake.uploadBody, `"Acme"`)

	_, err = b.CreateFile(context.Background(), archive.File{Name: "x"})
	require.Error(t, err)
}

func TestCreatePermission(t *testing.T) {
	t.Parallel()

	fake := &fakeDrive{}
	b := newTestBackend(t, fake)

	err := b.CreatePermission(context.Background(), "folder-9", archive.Permission{
		Role: "writer", Type: "user", EmailAddress: "ops@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "writer", fake.permissions[0]["role"])
	require.Equal(t, "ops@example.com", fake.permissions[0]["emailAddress"])

	fake.failPerms = true
	err = b.CreatePermission(context.Background(), "folder-9", archive.Permission{Role: "writer"})
	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.Code)
}
