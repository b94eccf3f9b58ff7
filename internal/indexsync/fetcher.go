package indexsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/openmined/dropsearch/internal/extract"
	"github.com/openmined/dropsearch/internal/filekey"
	"github.com/openmined/dropsearch/internal/remote"
	"golang.org/x/sync/errgroup"
)

// Fetched is the extracted text of one file and the path the backend reported for it
type Fetched struct {
	Content string
	Path    string

	extracted  bool
	extractErr error
}

// Fetcher downloads files and extracts their text with bounded concurrency
type Fetcher struct {
	backend     remote.Backend
	extractor   extract.Extractor
	workers     int
	maxFileSize int64

	fetchedBytes    atomic.Int64
	extractFailures atomic.Int64
}

func NewFetcher(backend remote.Backend, extractor extract.Extractor, workers int, maxFileSize int64) *Fetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fetcher{
		backend:     backend,
		extractor:   extractor,
		workers:     workers,
		maxFileSize: maxFileSize,
	}
}

// Fetch downloads and extracts every file exactly once. A download failure cancels the
// remaining work and is returned; nothing is returned partially.
//
// A file whose extraction fails keeps empty content so the others are still indexed.
// Only when the extraction service is unavailable and no file at all could be
// extracted is the fetch failed, so those files get real content on a later pass.
func (f *Fetcher) Fetch(ctx context.Context, files []*remote.RemoteFile) (map[filekey.Key]*Fetched, error) {
	var mu sync.Mutex
	results := make(map[filekey.Key]*Fetched, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(f.workers)

	for _, file := range files {
		eg.Go(func() error {
			fetched, err := f.fetchOne(egCtx, file)
			if err != nil {
				return err
			}
			mu.Lock()
			results[file.Key] = fetched
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := serviceDown(results); err != nil {
		return nil, err
	}
	return results, nil
}

// serviceDown returns the first unavailable error when not a single extraction succeeded
func serviceDown(results map[filekey.Key]*Fetched) error {
	var down error
	for _, r := range results {
		if r.extracted {
			return nil
		}
		if down == nil && errors.Is(r.extractErr, extract.ErrUnavailable) {
			down = r.extractErr
		}
	}
	return down
}

// ExtractFailures returns the number of files indexed without content because extraction failed
func (f *Fetcher) ExtractFailures() int64 {
	return f.extractFailures.Load()
}

// BytesFetched returns the total number of bytes downloaded by this fetcher
func (f *Fetcher) BytesFetched() int64 {
	return f.fetchedBytes.Load()
}

func (f *Fetcher) fetchOne(ctx context.Context, file *remote.RemoteFile) (*Fetched, error) {
	if f.tooLarge(file.Size) {
		slog.Warn("file too large, indexing without content",
			"path", file.Path, "size", humanize.IBytes(uint64(file.Size)), "limit", humanize.IBytes(uint64(f.maxFileSize)))
		return &Fetched{Path: file.Path}, nil
	}

	dl, err := f.backend.Download(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file.Path, err)
	}
	defer dl.Body.Close()

	canonical := dl.Path
	if canonical == "" {
		canonical = file.Path
	}

	var body io.Reader = dl.Body
	if f.maxFileSize > 0 {
		body = io.LimitReader(dl.Body, f.maxFileSize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Path, err)
	}
	f.fetchedBytes.Add(int64(len(data)))

	// the listing size can be stale; the bytes are authoritative
	if f.tooLarge(int64(len(data))) {
		slog.Warn("file too large, indexing without content", "path", canonical, "limit", humanize.IBytes(uint64(f.maxFileSize)))
		return &Fetched{Path: canonical}, nil
	}

	text, err := f.extractor.Extract(ctx, path.Base(canonical), data)
	if err != nil {
		// cancelled by the caller or by a failed download elsewhere
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.extractFailures.Add(1)
		slog.Warn("extract failed, indexing without content", "path", canonical, "error", err)
		return &Fetched{Path: canonical, extractErr: fmt.Errorf("extract %s: %w", canonical, err)}, nil
	}
	if text == "" && len(data) > 0 {
		slog.Debug("no text extracted", "path", canonical, "size", humanize.IBytes(uint64(len(data))))
	}

	return &Fetched{Content: text, Path: canonical, extracted: true}, nil
}

func (f *Fetcher) tooLarge(size int64) bool {
	return f.maxFileSize > 0 && size > f.maxFileSize
}
