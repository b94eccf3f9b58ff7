package indexsync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/openmined/dropsearch/internal/filekey"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/openmined/dropsearch/internal/remote"
	"github.com/openmined/dropsearch/internal/utils"
)

const lockRetryDelay = 100 * time.Millisecond

// Report describes one sync pass
type Report struct {
	PassID        string    `json:"pass_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Indexed       int       `json:"indexed"`
	Listed        int       `json:"listed"`
	Excluded      int       `json:"excluded"`
	Added         int       `json:"added"`
	Removed       int       `json:"removed"`
	Unchanged     int       `json:"unchanged"`
	FetchedBytes  int64     `json:"fetched_bytes"`
	ExtractFailed int64     `json:"extract_failed"`
	Error         string    `json:"error,omitempty"`
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Syncer reconciles the index with the remote listing.
// Passes are serialized in-process, and across processes when a lock file is configured.
type Syncer struct {
	index    index.Index
	backend  remote.Backend
	fetcher  *Fetcher
	filter   *remote.Filter
	fileLock *flock.Flock

	mu     sync.Mutex
	lastMu sync.RWMutex
	last   *Report
}

func NewSyncer(idx index.Index, backend remote.Backend, fetcher *Fetcher, cfg *SyncConfig) (*Syncer, error) {
	filter, err := remote.NewFilter(cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	s := &Syncer{
		index:   idx,
		backend: backend,
		fetcher: fetcher,
		filter:  filter,
	}

	if cfg.LockFile != "" {
		lockPath, err := utils.ResolvePath(cfg.LockFile)
		if err != nil {
			return nil, fmt.Errorf("sync: resolve lock file: %w", err)
		}
		if err := utils.EnsureParent(lockPath); err != nil {
			return nil, fmt.Errorf("sync: lock file directory: %w", err)
		}
		s.fileLock = flock.New(lockPath)
	}

	return s, nil
}

// Sync runs one pass: snapshot and listing, diff, fetch what was added, then one batch
// of upserts and deletes followed by a refresh. A failure before the batch leaves the
// index untouched.
func (s *Syncer) Sync(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{
		PassID:    uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := slog.With("pass", report.PassID)

	err := s.withFileLock(ctx, func() error {
		return s.run(ctx, log, report)
	})

	report.FinishedAt = time.Now()
	if err != nil {
		report.Error = err.Error()
		log.Error("sync failed", "error", err, "took", report.Duration())
	} else {
		log.Info("sync done",
			"indexed", report.Indexed,
			"listed", report.Listed,
			"excluded", report.Excluded,
			"added", report.Added,
			"removed", report.Removed,
			"unchanged", report.Unchanged,
			"fetched", humanize.IBytes(uint64(report.FetchedBytes)),
			"extract_failed", report.ExtractFailed,
			"took", report.Duration(),
		)
	}

	s.lastMu.Lock()
	s.last = report
	s.lastMu.Unlock()

	return report, err
}

// LastReport returns the report of the most recent pass, or nil when none ran
func (s *Syncer) LastReport() *Report {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// Close releases the lock file handle
func (s *Syncer) Close() error {
	if s.fileLock == nil {
		return nil
	}
	return s.fileLock.Close()
}

func (s *Syncer) withFileLock(ctx context.Context, fn func() error) error {
	if s.fileLock == nil {
		return fn()
	}

	locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return upstream(StageLock, err)
	}
	if !locked {
		return upstream(StageLock, fmt.Errorf("lock %s not acquired", s.fileLock.Path()))
	}
	defer func() {
		if err := s.fileLock.Unlock(); err != nil {
			slog.Warn("sync unlock", "path", s.fileLock.Path(), "error", err)
		}
	}()

	return fn()
}

func (s *Syncer) run(ctx context.Context, log *slog.Logger, report *Report) error {
	snapshot, err := s.index.Snapshot(ctx)
	if err != nil {
		return upstream(StageSnapshot, err)
	}
	report.Indexed = len(snapshot)

	listing, err := s.backend.List(ctx)
	if err != nil {
		return upstream(StageList, err)
	}
	report.Listed = len(listing)

	files := s.filter.Apply(listing)
	report.Excluded = len(listing) - len(files)

	remoteFiles := make(map[filekey.Key]*remote.RemoteFile, len(files))
	for _, f := range files {
		remoteFiles[f.Key] = f
	}

	oldKeys := mapset.NewSetWithSize[filekey.Key](len(snapshot))
	for k := range snapshot {
		oldKeys.Add(k)
	}
	newKeys := mapset.NewSetWithSize[filekey.Key](len(remoteFiles))
	for k := range remoteFiles {
		newKeys.Add(k)
	}

	diff := ComputeDiff(oldKeys, newKeys)
	report.Added = diff.ToAdd.Cardinality()
	report.Removed = diff.ToRemove.Cardinality()
	report.Unchanged = newKeys.Cardinality() - report.Added

	log.Debug("sync diff", "add", report.Added, "remove", report.Removed, "unchanged", report.Unchanged)
	if diff.Empty() {
		return nil
	}

	toAdd := diff.ToAdd.ToSlice()
	slices.Sort(toAdd)

	toFetch := make([]*remote.RemoteFile, 0, len(toAdd))
	for _, k := range toAdd {
		toFetch = append(toFetch, remoteFiles[k])
	}

	bytesBefore, failedBefore := s.fetcher.BytesFetched(), s.fetcher.ExtractFailures()
	fetched, err := s.fetcher.Fetch(ctx, toFetch)
	report.FetchedBytes = s.fetcher.BytesFetched() - bytesBefore
	report.ExtractFailed = s.fetcher.ExtractFailures() - failedBefore
	if err != nil {
		return upstream(StageFetch, err)
	}

	batch := &index.Batch{
		Upserts: make([]*index.Document, 0, len(toAdd)),
		Deletes: diff.ToRemove.ToSlice(),
	}
	slices.Sort(batch.Deletes)
	for _, k := range toAdd {
		f := fetched[k]
		batch.Upserts = append(batch.Upserts, &index.Document{
			Key:     k,
			Content: f.Content,
			Path:    f.Path,
		})
	}

	result, err := s.index.Apply(ctx, batch)
	if err != nil {
		return upstream(StageApply, err)
	}
	log.Debug("sync applied", "upserted", result.Upserted, "deleted", result.Deleted)

	if err := s.index.Refresh(ctx); err != nil {
		return upstream(StageRefresh, err)
	}
	return nil
}
