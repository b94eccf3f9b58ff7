package index

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/openmined/dropsearch/internal/utils"
)

const (
	BackendSQLite  = "sqlite"
	BackendElastic = "elasticsearch"

	DefaultName       = "dropbox_files"
	DefaultPageSize   = 1000
	DefaultSQLitePath = "dropsearch.db"
	maxPageSize       = 10000
)

var (
	ErrUnknownBackend = errors.New("index: unknown backend")

	// lowercase, usable both as an Elasticsearch index name and a quoted sqlite identifier
	validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

type Config struct {
	Backend  string        `mapstructure:"backend"`
	Name     string        `mapstructure:"name"`
	PageSize int           `mapstructure:"page_size"`
	SQLite   SQLiteConfig  `mapstructure:"sqlite"`
	Elastic  ElasticConfig `mapstructure:"elastic"`
}

func (c *Config) Validate() error {
	if !validName.MatchString(c.Name) {
		return fmt.Errorf("index: invalid name %q", c.Name)
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		return fmt.Errorf("index: page_size must be between 1 and %d", maxPageSize)
	}

	switch c.Backend {
	case BackendSQLite:
		return c.SQLite.Validate()
	case BackendElastic:
		return c.Elastic.Validate()
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

func (c *SQLiteConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("sqlite: path required")
	}
	return nil
}

type ElasticConfig struct {
	URL      string        `mapstructure:"url"`
	CloudID  string        `mapstructure:"cloud_id"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (c *ElasticConfig) Validate() error {
	if c.URL == "" && c.CloudID == "" {
		return fmt.Errorf("elasticsearch: url or cloud_id required")
	}
	if c.URL != "" && c.CloudID != "" {
		return fmt.Errorf("elasticsearch: url and cloud_id are mutually exclusive")
	}
	if c.URL != "" && !utils.IsValidURL(c.URL) {
		return fmt.Errorf("elasticsearch: invalid url %q", c.URL)
	}
	if c.CloudID != "" {
		if _, err := decodeCloudID(c.CloudID); err != nil {
			return err
		}
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("elasticsearch: username and password must be set together")
	}
	return nil
}

// Endpoint returns the cluster base URL, resolving a Cloud ID when set
func (c *ElasticConfig) Endpoint() (string, error) {
	if c.CloudID != "" {
		return decodeCloudID(c.CloudID)
	}
	return c.URL, nil
}
