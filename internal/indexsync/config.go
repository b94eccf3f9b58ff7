package indexsync

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/dropsearch/internal/remote"
)

const (
	DefaultWorkers     = 8
	DefaultMaxFileSize = "64MiB"
	DefaultMaxHits     = 10
	maxWorkers         = 64
)

type Config struct {
	Sync   SyncConfig
	Search SearchConfig
}

func (c *Config) Validate() error {
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Search.Validate()
}

type SyncConfig struct {
	Workers     int      `mapstructure:"workers"`
	MaxFileSize string   `mapstructure:"max_file_size"`
	Exclude     []string `mapstructure:"exclude"`
	LockFile    string   `mapstructure:"lock_file"`
}

func (c *SyncConfig) Validate() error {
	if c.Workers < 1 || c.Workers > maxWorkers {
		return fmt.Errorf("sync: workers must be between 1 and %d", maxWorkers)
	}
	if _, err := c.MaxFileSizeBytes(); err != nil {
		return err
	}
	if _, err := remote.NewFilter(c.Exclude); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// MaxFileSizeBytes parses MaxFileSize ("64MiB", "10 MB", ...). Zero means unlimited.
func (c *SyncConfig) MaxFileSizeBytes() (int64, error) {
	if c.MaxFileSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("sync: invalid max_file_size %q: %w", c.MaxFileSize, err)
	}
	return int64(n), nil
}

type SearchConfig struct {
	MaxHits      int           `mapstructure:"max_hits"`
	LinkCacheTTL time.Duration `mapstructure:"link_cache_ttl"`
}

func (c *SearchConfig) Validate() error {
	if c.MaxHits < 1 {
		return fmt.Errorf("search: max_hits must be positive")
	}
	if c.LinkCacheTTL < 0 {
		return fmt.Errorf("search: link_cache_ttl must not be negative")
	}
	return nil
}
