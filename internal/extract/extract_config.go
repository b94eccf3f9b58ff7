package extract

import (
	"fmt"
	"time"

	"github.com/openmined/dropsearch/internal/utils"
)

const DefaultTimeout = 60 * time.Second

type Config struct {
	TikaURL string        `mapstructure:"tika_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *Config) Validate() error {
	if c.TikaURL != "" && !utils.IsValidURL(c.TikaURL) {
		return fmt.Errorf("extract: invalid tika_url %q", c.TikaURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("extract: timeout must not be negative")
	}
	return nil
}

// New returns the extractor chain for cfg: plain text always, Tika when configured
func New(cfg *Config) (Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auto := &AutoExtractor{Plain: &PlainExtractor{}}
	if cfg.TikaURL != "" {
		auto.Rich = NewTikaExtractor(cfg.TikaURL, cfg.Timeout)
	}
	return auto, nil
}
