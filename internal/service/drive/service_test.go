package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/w-h-a/sourcechat/reference"
)

func newBackedService(t *testing.T, handler http.HandlerFunc, folders map[string]string, index *reference.Index) *Service {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := gdrive.NewService(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(ts.URL),
	)
	require.NoError(t, err)

	return New(svc, folders, index)
}

func loadIndex(t *testing.T, content string) *reference.Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "references.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return reference.Load(path)
}

func TestSearchFolderPaginatesAndNormalizes(t *testing.T) {
	idx := loadIndex(t, `[{"file": "A.pdf", "title": "Article A", "link": "la"}]`)

	requests := 0
	var queries []string

	svc := newBackedService(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		queries = append(queries, r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{
				"nextPageToken": "page2",
				"files": [{
					"id": "f1",
					"name": "A.pdf",
					"webViewLink": "https://view/f1",
					"mimeType": "application/pdf",
					"size": "123",
					"modifiedTime": "2024-01-01T00:00:00Z"
				}]
			}`)
			return
		}
		fmt.Fprint(w, `{"files": [{"id": "f2", "name": "B.mp3", "mimeType": "audio/mpeg"}]}`)
	}, map[string]string{"libros": "folder-1"}, idx)

	files := svc.SearchFolder(context.Background(), "fe", "folder-1")

	assert.Equal(t, 2, requests)
	require.Len(t, queries, 2)
	assert.Equal(t, "fullText contains 'fe' and 'folder-1' in parents", queries[0])

	require.Len(t, files, 2)
	assert.Equal(t, "f1", files[0].Id)
	assert.Equal(t, "A.pdf", files[0].Name)
	assert.Equal(t, "Article A", files[0].Title)
	assert.Equal(t, "https://view/f1", files[0].ViewLink)
	assert.Equal(t, "https://drive.google.com/file/d/f1/view", files[0].DownloadLink)
	assert.Equal(t, int64(123), files[0].Size)
	assert.Equal(t, "f2", files[1].Id)
	assert.Empty(t, files[1].Title)
}

func TestSearchFolderDegradesOnError(t *testing.T) {
	svc := newBackedService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403}}`, http.StatusForbidden)
	}, nil, nil)

	files := svc.SearchFolder(context.Background(), "fe", "folder-1")
	assert.Nil(t, files)
}

func TestSearchAllListsOnEmptyQuery(t *testing.T) {
	var queries []string

	svc := newBackedService(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files": [{"id": "f1", "name": "A.pdf"}]}`)
	}, map[string]string{
		"todas":  "parent-1",
		"libros": "folder-1",
		"videos": "None",
	}, nil)

	results := svc.SearchAll(context.Background(), "  ")

	// only 'libros' is searchable: 'todas' is the parent, 'videos' unset
	require.Len(t, queries, 1)
	assert.Equal(t, "'folder-1' in parents", queries[0])

	require.Contains(t, results, "libros")
	assert.Len(t, results["libros"], 1)
}

func TestFolderConfiguration(t *testing.T) {
	svc := newBackedService(t, func(w http.ResponseWriter, r *http.Request) {},
		map[string]string{
			"todas":  "parent-1",
			"libros": "folder-1",
			"audios": "",
			"videos": "None",
		}, nil)

	id, ok := svc.FolderId("libros")
	require.True(t, ok)
	assert.Equal(t, "folder-1", id)

	_, ok = svc.FolderId("audios")
	assert.False(t, ok)
	_, ok = svc.FolderId("videos")
	assert.False(t, ok)
	_, ok = svc.FolderId("desconocida")
	assert.False(t, ok)

	assert.Equal(t, []string{"libros", "todas"}, svc.Folders())
}

func TestQueryEscaping(t *testing.T) {
	var query string

	svc := newBackedService(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files": []}`)
	}, nil, nil)

	svc.SearchFolder(context.Background(), "l'amor", "folder-1")

	assert.Equal(t, `fullText contains 'l\'amor' and 'folder-1' in parents`, query)
}
