package indexsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/openmined/dropsearch/internal/remote"
	"golang.org/x/sync/errgroup"
)

const (
	linkCacheSize    = 4096
	linkLookupWorker = 4
)

// Match is one search result resolved to a shared link
type Match struct {
	Link string `json:"link"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Resolver runs phrase searches and maps each hit to the first direct shared link of its path.
// Hits whose path has no shared link are dropped.
type Resolver struct {
	index   index.Index
	backend remote.Backend
	maxHits int
	links   *expirable.LRU[string, []*remote.SharedLink]
}

func NewResolver(idx index.Index, backend remote.Backend, cfg *SearchConfig) *Resolver {
	maxHits := cfg.MaxHits
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}

	r := &Resolver{
		index:   idx,
		backend: backend,
		maxHits: maxHits,
	}
	if cfg.LinkCacheTTL > 0 {
		r.links = expirable.NewLRU[string, []*remote.SharedLink](linkCacheSize, nil, cfg.LinkCacheTTL)
	}
	return r
}

// Search returns the matches for phrase in the index's ranking order
func (r *Resolver) Search(ctx context.Context, phrase string) ([]*Match, error) {
	start := time.Now()

	hits, err := r.index.Search(ctx, phrase, r.maxHits)
	if err != nil {
		return nil, upstream(StageSearch, err)
	}

	resolved := make([]*Match, len(hits))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(linkLookupWorker)
	for i, hit := range hits {
		eg.Go(func() error {
			links, err := r.sharedLinks(egCtx, hit.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", hit.Path, err)
			}
			if len(links) == 0 {
				return nil
			}
			resolved[i] = &Match{
				Link: links[0].URL,
				Name: links[0].Name,
				Path: links[0].Path,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, upstream(StageLinks, err)
	}

	matches := make([]*Match, 0, len(resolved))
	for _, m := range resolved {
		if m != nil {
			matches = append(matches, m)
		}
	}

	slog.Debug("search resolved", "hits", len(hits), "linked", len(matches), "took", time.Since(start))
	return matches, nil
}

func (r *Resolver) sharedLinks(ctx context.Context, path string) ([]*remote.SharedLink, error) {
	if r.links != nil {
		if links, ok := r.links.Get(path); ok {
			return links, nil
		}
	}

	links, err := r.backend.SharedLinks(ctx, path)
	if err != nil {
		return nil, err
	}

	if r.links != nil {
		r.links.Add(path, links)
	}
	return links, nil
}
