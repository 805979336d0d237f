package assistant

import "context"

type Assistant interface {
	// Chat submits one user message and blocks until the upstream run for
	// that message reaches a terminal state, returning the raw turn.
	Chat(ctx context.Context, message string, opts ...ChatOption) (*Turn, error)
	// ResolveFileName maps an opaque upstream file identifier to a file name.
	ResolveFileName(ctx context.Context, fileId string) (string, error)
}

// Turn is a raw assistant reply before citation reconciliation.
type Turn struct {
	ThreadId    string
	Text        string
	Annotations []Annotation
}

// Annotation is one citation occurrence as supplied upstream: the literal
// marker substring embedded in the text and the file it points at.
// Annotations keep the upstream-supplied order.
type Annotation struct {
	Marker string
	FileId string
}
