package reference

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one record of the reference document: an internal file name
// mapped to a human title and a public download link.
type Entry struct {
	File  string `json:"file"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Index holds the lookup tables derived from the reference document. It is
// immutable after Load and safe to share across requests.
type Index struct {
	titles map[string]string
	stems  map[string]string
	links  map[string]string
	total  int
}

// Load reads the reference document at path. A missing or malformed document
// yields an empty index: the chat pipeline keeps working, citations just stop
// resolving to links.
func Load(path string) *Index {
	idx := &Index{
		titles: map[string]string{},
		stems:  map[string]string{},
		links:  map[string]string{},
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("reference document not readable, continuing with empty index", "path", path, "error", err)
		return idx
	}

	var entries []Entry
	if err := json.Unmarshal(bs, &entries); err != nil {
		slog.Warn("reference document is not valid JSON, continuing with empty index", "path", path, "error", err)
		return idx
	}

	idx.total = len(entries)

	valid := 0
	for i, entry := range entries {
		if len(entry.File) == 0 || len(entry.Link) == 0 || len(entry.Title) == 0 {
			slog.Warn("skipping incomplete reference entry", "index", i, "file", entry.File)
			continue
		}
		idx.titles[entry.File] = entry.Title
		idx.stems[stem(entry.File)] = entry.Title
		idx.links[entry.File] = entry.Link
		valid++
	}

	slog.Info("reference document loaded", "path", path, "total", idx.total, "valid", valid, "skipped", idx.total-valid)

	return idx
}

// LookupTitle returns the display title for an exact internal file name.
func (idx *Index) LookupTitle(fileName string) (string, bool) {
	title, ok := idx.titles[fileName]
	return title, ok
}

// LookupLink returns the download link for an exact internal file name.
func (idx *Index) LookupLink(fileName string) (string, bool) {
	link, ok := idx.links[fileName]
	return link, ok
}

// LookupTitleByStem matches ignoring the file extension. The folder listing
// uses it to decorate storage results whose names differ only by extension.
func (idx *Index) LookupTitleByStem(name string) (string, bool) {
	title, ok := idx.stems[stem(name)]
	return title, ok
}

// Size reports how many records the source document contained, valid or not.
func (idx *Index) Size() int {
	return idx.total
}

func stem(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ToLower(strings.TrimSpace(base))
}
