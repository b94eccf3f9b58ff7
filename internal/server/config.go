package server

import (
	"fmt"

	"github.com/openmined/dropsearch/internal/extract"
	"github.com/openmined/dropsearch/internal/index"
	"github.com/openmined/dropsearch/internal/indexsync"
	"github.com/openmined/dropsearch/internal/remote"
	"github.com/ulule/limiter/v3"
)

const (
	DefaultAddr       = "127.0.0.1:8080"
	DefaultSearchRate = "30-M"
	DefaultLogLevel   = "info"
)

type Config struct {
	HTTP    HTTPConfig             `mapstructure:"http"`
	Log     LogConfig              `mapstructure:"log"`
	Remote  remote.Config          `mapstructure:"remote"`
	Index   index.Config           `mapstructure:"index"`
	Extract extract.Config         `mapstructure:"extract"`
	Sync    indexsync.SyncConfig   `mapstructure:"sync"`
	Search  indexsync.SearchConfig `mapstructure:"search"`
}

func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Extract.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Search.Validate()
}

type HTTPConfig struct {
	Addr       string `mapstructure:"addr"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	SearchRate string `mapstructure:"search_rate"`
}

func (c *HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("http: addr required")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("http: cert_file and key_file must be set together")
	}
	if c.SearchRate != "" {
		if _, err := limiter.NewRateFromFormatted(c.SearchRate); err != nil {
			return fmt.Errorf("http: invalid search_rate %q: %w", c.SearchRate, err)
		}
	}
	return nil
}

func (c *HTTPConfig) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}
