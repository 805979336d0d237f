package drive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	drive "google.golang.org/api/drive/v3"

	"github.com/w-h-a/sourcechat/reference"
)

const (
	pageSize   = 100
	listFields = "nextPageToken, files(id, name, webViewLink, webContentLink, mimeType, size, modifiedTime)"

	// the parent folder; excluded when fanning out over folders
	parentFolder = "todas"
)

// File is a normalized storage search hit.
type File struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	Title        string `json:"title,omitempty"`
	ViewLink     string `json:"view_link"`
	DownloadLink string `json:"download_link"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	Folder       string `json:"carpeta_origen,omitempty"`
}

// Service searches a fixed set of pre-configured cloud folders. Search
// failures degrade to empty results; the endpoint never turns a storage
// hiccup into a request failure.
type Service struct {
	svc     *drive.Service
	folders map[string]string
	index   *reference.Index
}

// FolderId returns the configured folder id for a folder name.
func (s *Service) FolderId(name string) (string, bool) {
	id, ok := s.folders[name]
	if !ok || len(id) == 0 || id == "None" {
		return "", false
	}
	return id, true
}

// Folders lists the configured folder names, parent included.
func (s *Service) Folders() []string {
	names := make([]string, 0, len(s.folders))
	for name := range s.folders {
		if _, ok := s.FolderId(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SearchFolder runs a full-text search scoped to one folder, walking every
// result page.
func (s *Service) SearchFolder(ctx context.Context, query string, folderId string) []File {
	q := fmt.Sprintf("fullText contains '%s' and '%s' in parents", escape(query), escape(folderId))
	return s.list(ctx, q)
}

// ListFolder returns every file in a folder, walking every result page.
func (s *Service) ListFolder(ctx context.Context, folderId string) []File {
	q := fmt.Sprintf("'%s' in parents", escape(folderId))
	return s.list(ctx, q)
}

// SearchAll fans the query out over all configured folders except the
// parent. An empty query lists folder contents instead of searching.
// Folders with no hits are omitted.
func (s *Service) SearchAll(ctx context.Context, query string) map[string][]File {
	results := map[string][]File{}

	for _, name := range s.Folders() {
		if name == parentFolder {
			continue
		}

		folderId, _ := s.FolderId(name)

		var files []File
		if len(strings.TrimSpace(query)) == 0 {
			files = s.ListFolder(ctx, folderId)
		} else {
			files = s.SearchFolder(ctx, query, folderId)
		}

		if len(files) > 0 {
			results[name] = files
		}
	}

	return results
}

func (s *Service) list(ctx context.Context, q string) []File {
	var files []File

	pageToken := ""

	for {
		call := s.svc.Files.List().
			Q(q).
			PageSize(pageSize).
			Fields(listFields).
			Context(ctx)

		if len(pageToken) > 0 {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			slog.WarnContext(ctx, "drive search failed", "query", q, "error", err)
			return nil
		}

		for _, f := range res.Files {
			files = append(files, s.normalize(f))
		}

		pageToken = res.NextPageToken
		if len(pageToken) == 0 {
			break
		}
	}

	return files
}

func (s *Service) normalize(f *drive.File) File {
	file := File{
		Id:           f.Id,
		Name:         f.Name,
		ViewLink:     f.WebViewLink,
		DownloadLink: fmt.Sprintf("https://drive.google.com/file/d/%s/view", f.Id),
		MimeType:     f.MimeType,
		Size:         f.Size,
		ModifiedTime: f.ModifiedTime,
	}

	if s.index != nil {
		if title, ok := s.index.LookupTitleByStem(f.Name); ok {
			file.Title = title
		}
	}

	return file
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func New(svc *drive.Service, folders map[string]string, index *reference.Index) *Service {
	if svc == nil {
		panic("drive client is required")
	}

	if folders == nil {
		folders = map[string]string{}
	}

	return &Service{
		svc:     svc,
		folders: folders,
		index:   index,
	}
}
