package apiclient

import (
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/dropsearch/internal/version"
)

const (
	DefaultTimeout    = 60 * time.Second
	DefaultRetryCount = 2
)

// New returns a REST client with the shared JSON codec, user agent and retry policy.
// baseURL may be empty when callers use absolute URLs.
func New(baseURL string, timeout time.Duration) *req.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := req.C().
		SetUserAgent(version.ShortWithApp()).
		SetTimeout(timeout).
		SetCommonRetryCount(DefaultRetryCount).
		SetCommonRetryBackoffInterval(500*time.Millisecond, 5*time.Second).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}

	return client
}
