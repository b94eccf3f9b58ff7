package extract

import (
	"context"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
)

// AutoExtractor sniffs the content type and routes plain text to Plain and
// everything else to Rich. Without Rich, only text-like content is extracted.
type AutoExtractor struct {
	Plain Extractor
	Rich  Extractor
}

func (a *AutoExtractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("text/plain"):
		return a.Plain.Extract(ctx, name, data)
	case a.Rich != nil:
		return a.Rich.Extract(ctx, name, data)
	case isTextLike(mtype):
		return a.Plain.Extract(ctx, name, data)
	}

	slog.Debug("no extractor for content", "name", name, "mime", mtype.String())
	return "", nil
}

// isTextLike reports whether m descends from text/plain (html, json, csv, ...)
func isTextLike(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

var _ Extractor = (*AutoExtractor)(nil)
