package searchsdk

import (
	"context"
	"net/http"

	"github.com/imroc/req/v3"
)

const (
	syncEndpoint       = "/api/v1/sync"
	syncStatusEndpoint = "/api/v1/sync/status"
)

type SyncAPI struct {
	client *req.Client
}

func newSyncAPI(client *req.Client) *SyncAPI {
	return &SyncAPI{client: client}
}

// Run triggers a sync pass and waits for its report
func (s *SyncAPI) Run(ctx context.Context) (*SyncReport, error) {
	var report SyncReport
	resp, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&report).
		Post(syncEndpoint)

	if err := handleAPIError(resp, err, "sync"); err != nil {
		return nil, err
	}
	return &report, nil
}

// Status returns the last pass report, or nil when the server has not synced yet
func (s *SyncAPI) Status(ctx context.Context) (*SyncReport, error) {
	var report SyncReport
	resp, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&report).
		Get(syncStatusEndpoint)

	if err == nil && resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := handleAPIError(resp, err, "sync status"); err != nil {
		return nil, err
	}
	return &report, nil
}
