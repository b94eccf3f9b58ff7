package indexsync

import (
	"context"

	"github.com/openmined/dropsearch/internal/extract"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/openmined/dropsearch/internal/remote"
)

// Service answers search queries against an index it brings up to date first
type Service struct {
	syncer   *Syncer
	resolver *Resolver
}

func NewService(idx index.Index, backend remote.Backend, extractor extract.Extractor, cfg *Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	maxFileSize, err := cfg.Sync.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	fetcher := NewFetcher(backend, extractor, cfg.Sync.Workers, maxFileSize)
	syncer, err := NewSyncer(idx, backend, fetcher, &cfg.Sync)
	if err != nil {
		return nil, err
	}

	return &Service{
		syncer:   syncer,
		resolver: NewResolver(idx, backend, &cfg.Search),
	}, nil
}

// Query syncs the index and then searches it for phrase.
// Sync and search errors are *UpstreamError; an empty phrase is a *ValidationError.
func (s *Service) Query(ctx context.Context, phrase string) ([]*Match, error) {
	if phrase == "" {
		return nil, &ValidationError{Field: "q", Message: "no query"}
	}

	if _, err := s.syncer.Sync(ctx); err != nil {
		return nil, err
	}

	return s.resolver.Search(ctx, phrase)
}

// Sync runs a sync pass without searching
func (s *Service) Sync(ctx context.Context) (*Report, error) {
	return s.syncer.Sync(ctx)
}

// LastReport returns the most recent pass report, or nil
func (s *Service) LastReport() *Report {
	return s.syncer.LastReport()
}

func (s *Service) Close() error {
	return s.syncer.Close()
}
