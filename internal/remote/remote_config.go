package remote

import (
	"errors"
	"fmt"
	"time"

	"github.com/openmined/dropsearch/internal/utils"
)

const (
	BackendDropbox = "dropbox"
	BackendS3      = "s3"

	DefaultDropboxAPIURL     = "https://api.dropboxapi.com"
	DefaultDropboxContentURL = "https://content.dropboxapi.com"
	DefaultLinkExpiry        = 24 * time.Hour
	maxLinkExpiry            = 7 * 24 * time.Hour
)

var ErrUnknownBackend = errors.New("remote: unknown backend")

type Config struct {
	Backend string        `mapstructure:"backend"`
	Dropbox DropboxConfig `mapstructure:"dropbox"`
	S3      S3Config      `mapstructure:"s3"`
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendDropbox:
		return c.Dropbox.Validate()
	case BackendS3:
		return c.S3.Validate()
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}
}

type DropboxConfig struct {
	AppKey       string `mapstructure:"app_key"`
	AppSecret    string `mapstructure:"app_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	AccessToken  string `mapstructure:"access_token"`
	APIURL       string `mapstructure:"api_url"`
	ContentURL   string `mapstructure:"content_url"`
}

func (c *DropboxConfig) Validate() error {
	if c.RefreshToken == "" && c.AccessToken == "" {
		return fmt.Errorf("dropbox: refresh_token or access_token required")
	}
	if c.RefreshToken != "" && (c.AppKey == "" || c.AppSecret == "") {
		return fmt.Errorf("dropbox: app_key and app_secret required with refresh_token")
	}
	if c.APIURL != "" && !utils.IsValidURL(c.APIURL) {
		return fmt.Errorf("dropbox: invalid api_url %q", c.APIURL)
	}
	if c.ContentURL != "" && !utils.IsValidURL(c.ContentURL) {
		return fmt.Errorf("dropbox: invalid content_url %q", c.ContentURL)
	}
	return nil
}

type S3Config struct {
	BucketName    string        `mapstructure:"bucket_name"`
	Region        string        `mapstructure:"region"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Endpoint      string        `mapstructure:"endpoint"`
	Prefix        string        `mapstructure:"prefix"`
	LinkExpiry    time.Duration `mapstructure:"link_expiry"`
	UseAccelerate bool          `mapstructure:"use_accelerate"`
}

func (c *S3Config) Validate() error {
	if c.BucketName == "" {
		return fmt.Errorf("s3: bucket_name required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3: region required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("s3: access_key required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("s3: secret_key required")
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return fmt.Errorf("s3: invalid endpoint URL %q", c.Endpoint)
	}
	if c.LinkExpiry < 0 || c.LinkExpiry > maxLinkExpiry {
		return fmt.Errorf("s3: link_expiry must be between 0 and %s", maxLinkExpiry)
	}
	return nil
}
