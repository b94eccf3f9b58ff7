package remote

import (
	"fmt"
)

// New creates the backend selected by cfg.Backend
func New(cfg *Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendDropbox:
		return NewDropboxBackend(&cfg.Dropbox), nil
	case BackendS3:
		return NewS3BackendWithConfig(&cfg.S3)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Backend)
	}
}
