package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openmined/dropsearch/internal/filekey"
)

// Document is one indexed file version. Key doubles as the document id.
type Document struct {
	Key     filekey.Key `json:"-" db:"key"`
	Content string      `json:"content" db:"content"`
	Path    string      `json:"path" db:"path"`
}

// Snapshot is the full set of indexed documents keyed by their id
type Snapshot map[filekey.Key]*Document

// Keys returns the snapshot's keys in no particular order
func (s Snapshot) Keys() []filekey.Key {
	keys := make([]filekey.Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Batch is one set of index mutations, applied in a single request
type Batch struct {
	Upserts []*Document
	Deletes []filekey.Key
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Upserts) + len(b.Deletes)
}

func (b *Batch) Empty() bool {
	return b.Len() == 0
}

// BulkResult counts what a batch changed
type BulkResult struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
}

// BulkError reports the items of a batch the index refused. Items not listed were applied.
type BulkError struct {
	Failed map[filekey.Key]string
}

func (e *BulkError) Error() string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	const maxShown = 3
	shown := keys
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}

	parts := make([]string, 0, len(shown))
	for _, k := range shown {
		parts = append(parts, fmt.Sprintf("%s (%s)", k, e.Failed[filekey.Key(k)]))
	}

	msg := fmt.Sprintf("index: %d bulk item(s) failed: %s", len(keys), strings.Join(parts, ", "))
	if len(keys) > maxShown {
		msg += ", ..."
	}
	return msg
}

// Hit is one phrase-search match
type Hit struct {
	Key   filekey.Key `db:"key"`
	Path  string      `db:"path"`
	Score float64     `db:"score"`
}

// Index is the search index the sync pipeline reconciles against
type Index interface {
	// Ensure creates the index if it does not exist yet
	Ensure(ctx context.Context) error
	// Snapshot reads every indexed document
	Snapshot(ctx context.Context) (Snapshot, error)
	// Apply upserts and deletes documents by id in one batch
	Apply(ctx context.Context, batch *Batch) (*BulkResult, error)
	// Refresh makes applied mutations visible to Search
	Refresh(ctx context.Context) error
	// Search returns at most limit documents whose content contains phrase, in index rank order
	Search(ctx context.Context, phrase string, limit int) ([]*Hit, error)
	Close() error
}
