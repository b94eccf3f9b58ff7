package searchsdk

import (
	"context"

	"github.com/imroc/req/v3"
)

const searchEndpoint = "/search"

type SearchAPI struct {
	client *req.Client
}

func newSearchAPI(client *req.Client) *SearchAPI {
	return &SearchAPI{client: client}
}

// Query runs a phrase search. The server syncs its index before answering.
func (s *SearchAPI) Query(ctx context.Context, phrase string) ([]*Result, error) {
	if phrase == "" {
		return nil, ErrNoQuery
	}

	var results []*Result
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("q", phrase).
		SetSuccessResult(&results).
		Get(searchEndpoint)

	if err := handleAPIError(resp, err, "search"); err != nil {
		return nil, err
	}
	return results, nil
}
