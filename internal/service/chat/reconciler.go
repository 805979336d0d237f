package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/w-h-a/sourcechat/assistant"
	"github.com/w-h-a/sourcechat/reference"
)

// FileNameResolver maps an opaque upstream file identifier to a file name.
// It is the only I/O the reconciler performs.
type FileNameResolver func(ctx context.Context, fileId string) (string, error)

// Citation is one user-facing source reference. Quote is reserved and always
// empty. Text holds the dense display marker, e.g. "[2]".
type Citation struct {
	FileId       string `json:"file_id"`
	FileName     string `json:"file_name"`
	Quote        string `json:"quote"`
	Text         string `json:"text"`
	DownloadLink string `json:"download_link"`
}

// Reconciler turns a raw assistant turn into clean text plus deduplicated,
// densely renumbered citations, each backed by a link from the reference
// index. All bookkeeping is scoped to a single Process call.
type Reconciler struct {
	index   *reference.Index
	resolve FileNameResolver
}

func NewReconciler(index *reference.Index, resolve FileNameResolver) *Reconciler {
	if index == nil {
		panic("reference index is required")
	}

	if resolve == nil {
		panic("file name resolver is required")
	}

	return &Reconciler{
		index:   index,
		resolve: resolve,
	}
}

func (r *Reconciler) Process(ctx context.Context, rawText string, annotations []assistant.Annotation) (string, []Citation) {
	citations := []Citation{}

	fileNames := map[string]string{}  // fileId -> resolved name, one lookup per file per pass
	assigned := map[string]string{}   // fileId -> dense marker of first acceptance
	rewrites := map[string]string{}   // original marker literal -> replacement ("" deletes)
	markerOrder := []string{}         // original markers in first-appearance order

	for _, ann := range annotations {
		fileName, ok := fileNames[ann.FileId]
		if !ok {
			name, err := r.resolve(ctx, ann.FileId)
			if err != nil {
				// degrade to a synthetic name rather than failing the turn
				name = fallbackFileName(ann.FileId)
				slog.WarnContext(ctx, "file name resolution failed", "file_id", ann.FileId, "fallback", name, "error", err)
			}
			fileName = name
			fileNames[ann.FileId] = fileName
		}

		link, ok := r.index.LookupLink(fileName)
		if !ok {
			r.recordRewrite(ctx, rewrites, &markerOrder, ann.Marker, "")
			slog.WarnContext(ctx, "citation skipped, no download link", "file_name", fileName, "marker", ann.Marker)
			continue
		}

		if marker, ok := assigned[ann.FileId]; ok {
			r.recordRewrite(ctx, rewrites, &markerOrder, ann.Marker, marker)
			slog.InfoContext(ctx, "duplicate citation reused", "file_name", fileName, "marker", marker)
			continue
		}

		marker := fmt.Sprintf("[%d]", len(citations)+1)
		assigned[ann.FileId] = marker
		r.recordRewrite(ctx, rewrites, &markerOrder, ann.Marker, marker)

		citations = append(citations, Citation{
			FileId:       ann.FileId,
			FileName:     fileName,
			Quote:        "",
			Text:         marker,
			DownloadLink: link,
		})
	}

	finalText := rawText
	for _, marker := range markerOrder {
		finalText = strings.ReplaceAll(finalText, marker, rewrites[marker])
	}

	return finalText, citations
}

// recordRewrite keeps the first mapping for a given marker literal. Two
// annotations sharing one literal marker but pointing at different files
// cannot both be honored by text substitution, so the collision is logged
// and the earlier mapping stands.
func (r *Reconciler) recordRewrite(ctx context.Context, rewrites map[string]string, order *[]string, marker string, replacement string) {
	if existing, ok := rewrites[marker]; ok {
		if existing != replacement {
			slog.WarnContext(ctx, "marker collision, keeping first mapping", "marker", marker, "kept", existing, "dropped", replacement)
		}
		return
	}
	rewrites[marker] = replacement
	*order = append(*order, marker)
}

func fallbackFileName(fileId string) string {
	suffix := fileId
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return fmt.Sprintf("Archivo %s", suffix)
}
