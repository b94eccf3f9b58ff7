package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openmined/dropsearch/internal/extract"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/openmined/dropsearch/internal/indexsync"
	"github.com/openmined/dropsearch/internal/remote"
)

// SearchService is the sync-then-search pipeline behind the HTTP handlers
type SearchService interface {
	Query(ctx context.Context, phrase string) ([]*indexsync.Match, error)
	Sync(ctx context.Context) (*indexsync.Report, error)
	LastReport() *indexsync.Report
	Close() error
}

type Services struct {
	Index     index.Index
	Remote    remote.Backend
	Extractor extract.Extractor
	Search    SearchService
}

func NewServices(config *Config) (*Services, error) {
	backend, err := remote.New(&config.Remote)
	if err != nil {
		return nil, fmt.Errorf("create remote backend: %w", err)
	}

	extractor, err := extract.New(&config.Extract)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}

	idx, err := index.New(&config.Index)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	searchSvc, err := indexsync.NewService(idx, backend, extractor, &indexsync.Config{
		Sync:   config.Sync,
		Search: config.Search,
	})
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("create search service: %w", err)
	}

	return &Services{
		Index:     idx,
		Remote:    backend,
		Extractor: extractor,
		Search:    searchSvc,
	}, nil
}

func (s *Services) Start(ctx context.Context) error {
	// the index must exist before the first query snapshots it
	if err := s.Index.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	slog.Info("index ready")
	return nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.Search.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close search service: %w", err))
	}
	if err := s.Index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close index: %w", err))
	}
	return errors.Join(errs...)
}
