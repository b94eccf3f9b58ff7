package indexsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openmined/dropsearch/internal/extract"
	"github.com/openmined/dropsearch/internal/filekey"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSyncer(t *testing.T, idx index.Index, backend *memBackend, cfg *SyncConfig) *Syncer {
	t.Helper()
	if cfg == nil {
		cfg = &SyncConfig{Workers: 4}
	}
	maxSize, err := cfg.MaxFileSizeBytes()
	require.NoError(t, err)

	fetcher := NewFetcher(backend, &extract.PlainExtractor{}, cfg.Workers, maxSize)
	s, err := NewSyncer(idx, backend, fetcher, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSyncer_InitialPassIndexesEverything(t *testing.T) {
	idx := newMemIndex()
	backend := newMemBackend()
	backend.put("/a.txt", "id:a", "h1", "alpha")
	backend.put("/b.txt", "id:b", "h1", "bravo")

	s := newTestSyncer(t, idx, backend, nil)
	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Removed)
	assert.Equal(t, int64(len("alpha")+len("bravo")), report.FetchedBytes)
	assert.Equal(t, []filekey.Key{"id:a;h1", "id:b;h1"}, idx.keys())
	assert.Equal(t, "alpha", idx.doc("id:a;h1").Content)
	assert.Equal(t, "/a.txt", idx.doc("id:a;h1").Path)
	assert.Equal(t, []string{"snapshot", "apply", "refresh"}, idx.calls)
}

func TestSyncer_AddsOneKeepsExisting(t *testing.T) {
	idx := newMemIndex(&index.Document{Key: "id1;h1", Content: "doc1", Path: "/path1"})
	backend := newMemBackend()
	backend.put("/path1", "id1", "h1", "doc1")
	backend.put("/path2", "id2", "h2", "doc2")

	s := newTestSyncer(t, idx, backend, nil)
	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 0, report.Removed)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, []filekey.Key{"id1;h1", "id2;h2"}, idx.keys())

	// only the new key is fetched
	assert.Equal(t, 0, backend.downloadCount("/path1"))
	assert.Equal(t, 1, backend.downloadCount("/path2"))
}

func TestSyncer_Idempotent(t *testing.T) {
	idx := newMemIndex()
	backend := newMemBackend()
	backend.put("/a.txt", "id:a", "h1", "alpha")

	s := newTestSyncer(t, idx, backend, nil)
	_, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, idx.applies)

	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Added+report.Removed)
	assert.Equal(t, 1, idx.applies, "no bulk request when nothing changed")
	assert.Equal(t, 1, idx.refreshes)
	assert.Equal(t, 1, backend.totalDownloads())
}

func TestSyncer_Convergence(t *testing.T) {
	idx := newMemIndex(
		&index.Document{Key: "id:gone;h1", Content: "old", Path: "/gone.txt"},
		&index.Document{Key: "id:a;h1", Content: "alpha v1", Path: "/a.txt"},
		&index.Document{Key: "id:b;h1", Content: "bravo", Path: "/b.txt"},
	)
	backend := newMemBackend()
	backend.put("/a.txt", "id:a", "h2", "alpha v2")
	backend.put("/b.txt", "id:b", "h1", "bravo")
	backend.put("/c.txt", "id:c", "h1", "charlie")

	s := newTestSyncer(t, idx, backend, nil)
	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []filekey.Key{"id:a;h2", "id:b;h1", "id:c;h1"}, idx.keys())
	assert.Equal(t, "alpha v2", idx.doc("id:a;h2").Content)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 2, report.Removed)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 0, backend.downloadCount("/b.txt"))
}

func TestSyncer_RemovesDeletedFiles(t *testing.T) {
	idx := newMemIndex()
	backend := newMemBackend()
	backend.put("/a.txt", "id:a", "h1", "alpha")
	backend.put("/b.txt", "id:b", "h1", "bravo")

	s := newTestSyncer(t, idx, backend, nil)
	_, err := s.Sync(context.Background())
	require.NoError(t, err)

	backend.remove("/a.txt")
	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []filekey.Key{"id:b;h1"}, idx.keys())
}

func TestSyncer_ListFailureMutatesNothing(t *testing.T) {
	idx := newMemIndex(&index.Document{Key: "id:a;h1", Content: "alpha", Path: "/a.txt"})
	backend := newMemBackend()
	backend.listErr = errUnavailable

	s := newTestSyncer(t, idx, backend, nil)
	report, err := s.Sync(context.Background())
	require.Error(t, err)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, StageList, upErr.Stage)
	assert.ErrorIs(t, err, errUnavailable)

	assert.Equal(t, 0, idx.applies)
	assert.Equal(t, []filekey.Key{"id:a;h1"}, idx.keys())
	assert.NotEmpty(t, report.Error)
}

func TestSyncer_DownloadFailureMutatesNothing(t *testing.T) {
	idx := newMemIndex(&index.Document{Key: "id:old;h1", Content: "x", Path: "/old.txt"})
	backend := newMemBackend()
	backend.put("/a.txt", "id:a", "h1", "alpha")
	backend.downloadErr = errUnavailable

	s := newTestSyncer(t, idx, backend, nil)
	_, err := s.Sync(context.Background())

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, StageFetch, upErr.Stage)
	assert.Equal(t, 0, idx.applies)
	assert.Equal(t, []filekey.Key{"id:old;h1"}, idx.keys(), "stale document survives until a pass succeeds")
}

func TestSyncer_ExtractionServiceDownAborts(t *testing.T) {
	idx := newMemIndex()
	backend := newMemBackend()
	backend.put("/a.pdf", "id:a", "h1", "%PDF-1.4")
	backend.put("/b.pdf", "id:b", "h1", "%PDF-1.5")

	fetcher := NewFetcher(backend, failingExtractor{}, 2, 0)
	s, err := NewSyncer(idx, backend, fetcher, &SyncConfig{Workers: 2})
	require.NoError(t, err)

	_, err = s.Sync(context.Background())
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, StageFetch, upErr.Stage)
	assert.ErrorIs(t, err, extract.ErrUnavailable)
	assert.Equal(t, 0, idx.applies)
}

func TestSyncer_ExtractionFailureOnOneFileIndexesTheRest(t *testing.T) {
	idx := newMemIndex()
	backend := newMemBackend()
	backend.put("/good.txt", "id:good", "h1", "good content")
	backend.put("/bad.pdf", "id:bad", "h1", "%PDF-1.4")
	backend.put("/gone.pdf", "id:gone", "h1", "%PDF-1.4")

	extractor := flakyExtractor{fail: map[string]error{
		"bad.pdf":  errors.New("tika: http request: context deadline exceeded"),
		"gone.pdf": fmt.Errorf("%w: status 503", extract.ErrUnavailable),
	}}
	fetcher := NewFetcher(backend, extractor, 2, 0)
	s, err := NewSyncer(idx, backend, fetcher, &SyncConfig{Workers: 2})
	require.NoError(t, err)

	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Added)
	assert.Equal(t, int64(2), report.ExtractFailed)
	assert.Equal(t, []filekey.Key{"id:bad;h1", "id:gone;h1", "id:good;h1"}, idx.keys())
	assert.Equal(t, "good content", idx.doc("id:good;h1").Content)
	assert.Empty(t, idx.doc("id:bad;h1").Content)
	assert.Equal(t, "/bad.pdf", idx.doc("id:bad;h1").Path)

	// the failed files are indexed, so the next pass does not retry them
	report, err = s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 1, backend.downloadCount("/bad.pdf"))
}

func TestSyncer_HangingExtractionDoesNotBlockOtherFiles(t *testing.T) {
	var slowCalls atomic.Int32
	tika := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) == "hangs" {
			slowCalls.Add(1)
			time.Sleep(500 * time.Millisecond)
		}
		_, _ = w.Write([]byte("text of " + string(body)))
	}))
	defer tika.Close()

	idx := newMemIndex()
	backend := newMemBackend()
	backend.put("/good.bin", "id:good", "h1", "fine")
	backend.put("/bad.bin", "id:bad", "h1", "hangs")

	fetcher := NewFetcher(backend, extract.NewTikaExtractor(tika.URL, 100*time.Millisecond), 2, 0)
	s, err := NewSyncer(idx, backend, fetcher, &SyncConfig{Workers: 2})
	require.NoError(t, err)

	for pass := range 2 {
		_, err := s.Sync(context.Background())
		require.NoError(t, err, "pass %d", pass)
	}

	assert.Equal(t, []filekey.Key{"id:bad;h1", "id:good;h1"}, idx.keys())
	assert.Equal(t, "text of fine", idx.doc("id:good;h1").Content)
	assert.Empty(t, idx.doc("id:bad;h1").Content)
	// one attempt, no retries, and nothing left for the second pass
	assert.Equal(t, int32(1), slowCalls.Load())
}

func TestSyncer_SnapshotAndApplyFailures(t *testing.T) {
	t.Run("snapshot", func(t *testing.T) {
		idx := newMemIndex()
		idx.snapshotErr = errUnavailable
		s := newTestSyncer(t, idx, newMemBackend(), nil)

		_, err := s.Sync(context.Background())
		var upErr *UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, StageSnapshot, upErr.Stage)
	})

	t.Run("apply", func(t *testing.T) {
		idx := newMemIndex()
		idx.applyErr = &index.BulkError{Failed: map[filekey.Key]string{"id:a;h1": "rejected"}}
		backend := newMemBackend()
		backend.put("/a.txt", "id:a", "h1", "alpha")
		s := newTestSyncer(t, idx, backend, nil)

		_, err := s.Sync(context.Background())
		var upErr *UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, StageApply, upErr.Stage)

		var bulkErr *index.BulkError
		assert.ErrorAs(t, err, &bulkErr)
		assert.Equal(t, 0, idx.refreshes)
	})
}

func TestSyncer_ExcludeAndMaxFileSize(t *testing.T) {
	idx := newMemIndex()
	backend := newMemBackend()
	backend.put("/docs/a.txt", "id:a", "h1", "alpha")
	backend.put("/tmp/scratch.txt", "id:t", "h1", "scratch")
	backend.put("/big.txt", "id:big", "h1", "0123456789abcdef")

	s := newTestSyncer(t, idx, backend, &SyncConfig{
		Workers:     2,
		MaxFileSize: "10B",
		Exclude:     []string{"tmp/**"},
	})

	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Listed)
	assert.Equal(t, 1, report.Excluded)
	assert.Equal(t, []filekey.Key{"id:a;h1", "id:big;h1"}, idx.keys())
	assert.Empty(t, idx.doc("id:big;h1").Content)
	assert.Equal(t, "/big.txt", idx.doc("id:big;h1").Path)
	assert.Equal(t, 0, backend.downloadCount("/big.txt"))
}

func TestSyncer_ConcurrentPassesSerialize(t *testing.T) {
	idx := newMemIndex()
	backend := newMemBackend()
	for i, p := range []string{"/a", "/b", "/c", "/d"} {
		backend.put(p, "id"+p, "h"+string(rune('0'+i)), "text "+p)
	}

	lockFile := filepath.Join(t.TempDir(), "locks", "sync.lock")
	s := newTestSyncer(t, idx, backend, &SyncConfig{Workers: 2, LockFile: lockFile})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Sync(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, idx.keys(), 4)
	assert.Equal(t, 1, idx.applies)
	assert.Equal(t, 4, backend.totalDownloads(), "each key fetched exactly once across passes")
	assert.FileExists(t, lockFile)
}

func TestSyncer_LastReport(t *testing.T) {
	s := newTestSyncer(t, newMemIndex(), newMemBackend(), nil)
	assert.Nil(t, s.LastReport())

	report, err := s.Sync(context.Background())
	require.NoError(t, err)

	last := s.LastReport()
	require.NotNil(t, last)
	assert.Equal(t, report.PassID, last.PassID)
	assert.False(t, last.FinishedAt.Before(last.StartedAt))
}
