package indexsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/openmined/dropsearch/internal/extract"
	"github.com/openmined/dropsearch/internal/filekey"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/openmined/dropsearch/internal/remote"
)

var errUnavailable = errors.New("service unavailable")

// memIndex is an in-memory index.Index with naive case-insensitive substring matching
type memIndex struct {
	mu        sync.Mutex
	docs      map[filekey.Key]*index.Document
	order     []filekey.Key
	applies   int
	refreshes int
	calls     []string

	snapshotErr error
	applyErr    error
	searchErr   error
}

func newMemIndex(docs ...*index.Document) *memIndex {
	m := &memIndex{docs: make(map[filekey.Key]*index.Document)}
	for _, d := range docs {
		m.put(d)
	}
	return m
}

func (m *memIndex) put(d *index.Document) {
	if _, ok := m.docs[d.Key]; !ok {
		m.order = append(m.order, d.Key)
	}
	cp := *d
	m.docs[d.Key] = &cp
}

func (m *memIndex) Ensure(ctx context.Context) error { return nil }

func (m *memIndex) Snapshot(ctx context.Context) (index.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "snapshot")
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	snap := make(index.Snapshot, len(m.docs))
	for k, d := range m.docs {
		cp := *d
		snap[k] = &cp
	}
	return snap, nil
}

func (m *memIndex) Apply(ctx context.Context, batch *index.Batch) (*index.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "apply")
	m.applies++
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	res := &index.BulkResult{}
	for _, d := range batch.Upserts {
		m.put(d)
		res.Upserted++
	}
	for _, k := range batch.Deletes {
		delete(m.docs, k)
		m.order = slices.DeleteFunc(m.order, func(o filekey.Key) bool { return o == k })
		res.Deleted++
	}
	return res, nil
}

func (m *memIndex) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "refresh")
	m.refreshes++
	return nil
}

func (m *memIndex) Search(ctx context.Context, phrase string, limit int) ([]*index.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "search")
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var hits []*index.Hit
	for _, k := range m.order {
		d := m.docs[k]
		if strings.Contains(strings.ToLower(d.Content), strings.ToLower(phrase)) {
			hits = append(hits, &index.Hit{Key: k, Path: d.Path})
		}
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (m *memIndex) Close() error { return nil }

func (m *memIndex) keys() []filekey.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]filekey.Key, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *memIndex) doc(k filekey.Key) *index.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[k]
}

type memFile struct {
	id      string
	rev     string
	content string
	links   []string
}

// memBackend is an in-memory remote.Backend keyed by path
type memBackend struct {
	mu        sync.Mutex
	files     map[string]*memFile
	downloads map[string]int
	linkCalls int

	listErr     error
	downloadErr error
	linksErr    error
}

func newMemBackend() *memBackend {
	return &memBackend{
		files:     make(map[string]*memFile),
		downloads: make(map[string]int),
	}
}

func (b *memBackend) put(path, id, rev, content string, links ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[path] = &memFile{id: id, rev: rev, content: content, links: links}
}

func (b *memBackend) remove(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, path)
}

func (b *memBackend) List(ctx context.Context) ([]*remote.RemoteFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	var out []*remote.RemoteFile
	for p, f := range b.files {
		key, err := filekey.New(f.id, f.rev)
		if err != nil {
			return nil, err
		}
		out = append(out, &remote.RemoteFile{Key: key, Path: p, Size: int64(len(f.content))})
	}
	return out, nil
}

func (b *memBackend) Download(ctx context.Context, path string) (*remote.Download, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.downloads[path]++
	if b.downloadErr != nil {
		return nil, b.downloadErr
	}
	f, ok := b.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return &remote.Download{
		Body: io.NopCloser(bytes.NewReader([]byte(f.content))),
		Path: path,
		Size: int64(len(f.content)),
	}, nil
}

func (b *memBackend) SharedLinks(ctx context.Context, path string) ([]*remote.SharedLink, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linkCalls++
	if b.linksErr != nil {
		return nil, b.linksErr
	}
	f, ok := b.files[path]
	if !ok {
		return nil, nil
	}
	links := make([]*remote.SharedLink, 0, len(f.links))
	for _, l := range f.links {
		links = append(links, &remote.SharedLink{URL: l, Name: path[strings.LastIndex(path, "/")+1:], Path: strings.ToLower(path)})
	}
	return links, nil
}

func (b *memBackend) downloadCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.downloads[path]
}

func (b *memBackend) totalDownloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.downloads {
		n += c
	}
	return n
}

// failingExtractor reports an unreachable extraction service
type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	return "", fmt.Errorf("%w: connection refused", extract.ErrUnavailable)
}

// flakyExtractor fails the listed names with err and extracts the rest as plain text
type flakyExtractor struct {
	fail map[string]error
}

func (f flakyExtractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	if err, ok := f.fail[name]; ok {
		return "", err
	}
	return string(data), nil
}
