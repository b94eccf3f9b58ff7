package searchsdk

import (
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/dropsearch/internal/apiclient"
	"github.com/openmined/dropsearch/internal/utils"
)

const defaultTimeout = 5 * time.Minute

// SearchSDK is the client for a dropsearch server
type SearchSDK struct {
	client *req.Client
	Search *SearchAPI
	Sync   *SyncAPI
}

// New creates a client for the server at baseURL. A search triggers a sync pass on the
// server, so the timeout is generous.
func New(baseURL string) (*SearchSDK, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}
	if !utils.IsValidURL(baseURL) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidServerURL, baseURL)
	}

	// every request may run a full sync pass on the server; never send it twice
	client := apiclient.New(baseURL, defaultTimeout).
		SetCommonRetryCount(0).
		SetCommonErrorResult(&APIError{})

	return &SearchSDK{
		client: client,
		Search: newSearchAPI(client),
		Sync:   newSyncAPI(client),
	}, nil
}
