package index

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"
	"github.com/openmined/dropsearch/internal/apiclient"
	"github.com/openmined/dropsearch/internal/filekey"
)

const (
	scrollKeepAlive    = "1m"
	errAlreadyExists   = "resource_already_exists_exception"
	bulkOpIndex        = "index"
	bulkOpDelete       = "delete"
	bulkResultNotFound = "not_found"
	contentTypeNDJSON  = "application/x-ndjson"
)

var ErrInvalidCloudID = errors.New("elasticsearch: invalid cloud_id")

// ElasticIndex talks to an Elasticsearch cluster over its REST API.
// Bulk requests are not atomic: a failed item leaves the other items applied.
type ElasticIndex struct {
	client   *req.Client
	name     string
	pageSize int
}

func NewElasticIndex(name string, pageSize int, cfg *ElasticConfig) (*ElasticIndex, error) {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	client := apiclient.New(endpoint, cfg.Timeout)
	if cfg.Username != "" {
		client.SetCommonBasicAuth(cfg.Username, cfg.Password)
	}

	return &ElasticIndex{
		client:   client,
		name:     name,
		pageSize: pageSize,
	}, nil
}

func (e *ElasticIndex) Ensure(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Head("/" + e.name)
	if err != nil {
		return fmt.Errorf("elasticsearch: check index %s: %w", e.name, err)
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return apiclient.HandleError(resp, nil, "elasticsearch: check index")
	}

	var esErr esErrorResponse
	resp, err = e.client.R().
		SetContext(ctx).
		SetBody(esIndexSettings).
		SetErrorResult(&esErr).
		Put("/" + e.name)
	if err == nil && resp.IsErrorState() && esErr.Error.Type == errAlreadyExists {
		// created concurrently by another process
		return nil
	}
	if err := apiclient.HandleError(resp, err, "elasticsearch: create index"); err != nil {
		return err
	}

	slog.Info("elasticsearch index created", "index", e.name)
	return nil
}

func (e *ElasticIndex) Snapshot(ctx context.Context) (Snapshot, error) {
	var page esSearchResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParam("scroll", scrollKeepAlive).
		SetBody(&esSearchRequest{
			Size:  e.pageSize,
			Sort:  []string{"_doc"},
			Query: map[string]any{"match_all": map[string]any{}},
		}).
		SetSuccessResult(&page).
		Post("/" + e.name + "/_search")
	if err := apiclient.HandleError(resp, err, "elasticsearch: snapshot"); err != nil {
		return nil, err
	}

	scrollID := page.ScrollID
	defer func() {
		if scrollID != "" {
			e.clearScroll(context.WithoutCancel(ctx), scrollID)
		}
	}()

	snapshot := make(Snapshot)
	for len(page.Hits.Hits) > 0 {
		for _, hit := range page.Hits.Hits {
			// ids are taken as-is so that malformed leftovers show up in the diff and get removed
			key := filekey.Key(hit.ID)
			snapshot[key] = &Document{
				Key:     key,
				Content: hit.Source.Content,
				Path:    hit.Source.Path,
			}
		}

		if len(page.Hits.Hits) < e.pageSize {
			break
		}

		var next esSearchResponse
		resp, err := e.client.R().
			SetContext(ctx).
			SetBody(&esScrollRequest{Scroll: scrollKeepAlive, ScrollID: scrollID}).
			SetSuccessResult(&next).
			Post("/_search/scroll")
		if err := apiclient.HandleError(resp, err, "elasticsearch: scroll"); err != nil {
			return nil, err
		}
		page = next
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}

	return snapshot, nil
}

func (e *ElasticIndex) clearScroll(ctx context.Context, scrollID string) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(&esClearScrollRequest{ScrollID: []string{scrollID}}).
		Delete("/_search/scroll")
	if err := apiclient.HandleError(resp, err, "elasticsearch: clear scroll"); err != nil && !apiclient.IsNotFound(err) {
		slog.Warn("elasticsearch clear scroll", "error", err)
	}
}

func (e *ElasticIndex) Apply(ctx context.Context, batch *Batch) (*BulkResult, error) {
	result := &BulkResult{}
	if batch.Empty() {
		return result, nil
	}

	body, err := e.bulkBody(batch)
	if err != nil {
		return nil, err
	}

	var bulk esBulkResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeNDJSON).
		SetBodyBytes(body).
		SetSuccessResult(&bulk).
		Post("/_bulk")
	if err := apiclient.HandleError(resp, err, "elasticsearch: bulk"); err != nil {
		return nil, err
	}

	if len(bulk.Items) != batch.Len() {
		return nil, fmt.Errorf("elasticsearch: bulk returned %d items for %d actions", len(bulk.Items), batch.Len())
	}

	failed := make(map[filekey.Key]string)
	for _, entry := range bulk.Items {
		for op, item := range entry {
			key := filekey.Key(item.ID)
			switch {
			case op == bulkOpDelete && (item.Status == http.StatusNotFound || item.Result == bulkResultNotFound):
				result.Deleted++
			case item.Status >= 200 && item.Status < 300:
				if op == bulkOpDelete {
					result.Deleted++
				} else {
					result.Upserted++
				}
			default:
				reason := fmt.Sprintf("status %d", item.Status)
				if item.Error != nil {
					reason = item.Error.Type + ": " + item.Error.Reason
				}
				failed[key] = reason
			}
		}
	}

	if len(failed) > 0 {
		return result, &BulkError{Failed: failed}
	}
	return result, nil
}

func (e *ElasticIndex) bulkBody(batch *Batch) ([]byte, error) {
	var buf bytes.Buffer
	writeLine := func(v any) error {
		line, err := apiclient.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		return nil
	}

	for _, doc := range batch.Upserts {
		action := map[string]*esBulkAction{bulkOpIndex: {Index: e.name, ID: string(doc.Key)}}
		if err := writeLine(action); err != nil {
			return nil, fmt.Errorf("elasticsearch: encode bulk action: %w", err)
		}
		if err := writeLine(&esSource{Content: doc.Content, Path: doc.Path}); err != nil {
			return nil, fmt.Errorf("elasticsearch: encode document %s: %w", doc.Key, err)
		}
	}

	for _, key := range batch.Deletes {
		action := map[string]*esBulkAction{bulkOpDelete: {Index: e.name, ID: string(key)}}
		if err := writeLine(action); err != nil {
			return nil, fmt.Errorf("elasticsearch: encode bulk action: %w", err)
		}
	}

	return buf.Bytes(), nil
}

func (e *ElasticIndex) Refresh(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Post("/" + e.name + "/_refresh")
	return apiclient.HandleError(resp, err, "elasticsearch: refresh")
}

func (e *ElasticIndex) Search(ctx context.Context, phrase string, limit int) ([]*Hit, error) {
	var res esSearchResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(&esSearchRequest{
			Size:   limit,
			Source: []string{"path"},
			Query: map[string]any{
				"match_phrase": map[string]any{"content": phrase},
			},
		}).
		SetSuccessResult(&res).
		Post("/" + e.name + "/_search")
	if err := apiclient.HandleError(resp, err, "elasticsearch: search"); err != nil {
		return nil, err
	}

	hits := make([]*Hit, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		hits = append(hits, &Hit{
			Key:   filekey.Key(h.ID),
			Path:  h.Source.Path,
			Score: h.Score,
		})
	}
	return hits, nil
}

func (e *ElasticIndex) Close() error {
	e.client.GetClient().CloseIdleConnections()
	return nil
}

// decodeCloudID resolves an Elastic Cloud ID ("<label>:<base64(host$es_uuid$kibana_uuid)>")
// into the cluster's https endpoint.
func decodeCloudID(cloudID string) (string, error) {
	i := strings.LastIndex(cloudID, ":")
	if i < 0 || i == len(cloudID)-1 {
		return "", ErrInvalidCloudID
	}

	raw, err := base64.StdEncoding.DecodeString(cloudID[i+1:])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCloudID, err)
	}

	parts := strings.Split(string(raw), "$")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidCloudID
	}

	host, port, hasPort := strings.Cut(parts[0], ":")
	endpoint := "https://" + parts[1] + "." + host
	if hasPort && port != "" && port != "443" {
		endpoint += ":" + port
	}
	return endpoint, nil
}

var _ Index = (*ElasticIndex)(nil)
