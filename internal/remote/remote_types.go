package remote

import (
	"context"
	"io"

	"github.com/openmined/dropsearch/internal/filekey"
)

// RemoteFile is the current listing's view of one file version
type RemoteFile struct {
	Key  filekey.Key
	Path string
	Size int64
}

// Download is an open content stream for one remote file.
// Path is the canonical path reported by the backend, which may differ in case or
// normalization from the requested one.
type Download struct {
	Body io.ReadCloser
	Path string
	Size int64
}

// SharedLink is a shareable URL created explicitly for a path
type SharedLink struct {
	URL  string
	Name string
	Path string
}

// Backend is a cloud storage account that dropsearch indexes.
type Backend interface {
	// List recursively enumerates every file under the account root.
	// Entries without a content fingerprint (folders) are omitted and pagination is hidden.
	List(ctx context.Context) ([]*RemoteFile, error)

	// Download opens the content of the file at path. Callers must close Body.
	Download(ctx context.Context, path string) (*Download, error)

	// SharedLinks returns the direct (non-inherited) shared links for path.
	// An empty slice means the path has no links.
	SharedLinks(ctx context.Context, path string) ([]*SharedLink, error)
}
