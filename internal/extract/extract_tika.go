package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/dropsearch/internal/apiclient"
)

const tikaEndpoint = "/tika"

// TikaExtractor sends documents to an Apache Tika server and returns the plain text body.
type TikaExtractor struct {
	client *req.Client
}

func NewTikaExtractor(baseURL string, timeout time.Duration) *TikaExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// a document that timed out once will time out again; retries only multiply the wait
	client := apiclient.New(strings.TrimSuffix(baseURL, "/"), timeout).
		SetCommonRetryCount(0)
	return &TikaExtractor{client: client}
}

func (t *TikaExtractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		SetHeader("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(path.Base(name))).
		SetBodyBytes(data).
		Put(tikaEndpoint)
	if err != nil {
		if isDialError(err) {
			return "", fmt.Errorf("tika: %w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("tika: http request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "", fmt.Errorf("tika: %w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.IsErrorState():
		// encrypted, corrupt or unsupported documents
		slog.Warn("tika extract failed", "name", name, "status", resp.StatusCode)
		return "", nil
	}

	return resp.String(), nil
}

// isDialError reports whether no connection to the server could be made at all
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

var _ Extractor = (*TikaExtractor)(nil)
