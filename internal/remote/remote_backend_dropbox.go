package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/imroc/req/v3"
	"github.com/openmined/dropsearch/internal/apiclient"
	"github.com/openmined/dropsearch/internal/filekey"
)

const (
	dropboxListFolder         = "/2/files/list_folder"
	dropboxListFolderContinue = "/2/files/list_folder/continue"
	dropboxDownload           = "/2/files/download"
	dropboxListSharedLinks    = "/2/sharing/list_shared_links"
	dropboxOAuthToken         = "/oauth2/token"

	dropboxListLimit   = 2000
	dropboxTokenLeeway = time.Minute
	headerAPIArg       = "Dropbox-API-Arg"
	headerAPIResult    = "Dropbox-API-Result"
)

// DropboxBackend talks to the Dropbox HTTP API
type DropboxBackend struct {
	api     *req.Client
	content *req.Client
	tokens  *dropboxTokenSource
}

func NewDropboxBackend(cfg *DropboxConfig) *DropboxBackend {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultDropboxAPIURL
	}
	contentURL := cfg.ContentURL
	if contentURL == "" {
		contentURL = DefaultDropboxContentURL
	}

	tokens := &dropboxTokenSource{
		client:       apiclient.New(apiURL, 0),
		appKey:       cfg.AppKey,
		appSecret:    cfg.AppSecret,
		refreshToken: cfg.RefreshToken,
		token:        cfg.AccessToken,
	}
	if cfg.RefreshToken == "" {
		// static token never expires from our point of view
		tokens.expiry = time.Now().AddDate(100, 0, 0)
	}

	b := &DropboxBackend{
		api:     apiclient.New(apiURL, 0),
		content: apiclient.New(contentURL, 0),
		tokens:  tokens,
	}
	b.api.OnBeforeRequest(tokens.authorize)
	b.content.OnBeforeRequest(tokens.authorize)
	return b
}

// ===================================================================================================

func (d *DropboxBackend) List(ctx context.Context) ([]*RemoteFile, error) {
	var files []*RemoteFile

	var page dropboxListFolderResponse
	resp, err := d.api.R().
		SetContext(ctx).
		SetBody(&dropboxListFolderRequest{Path: "", Recursive: true, Limit: dropboxListLimit}).
		SetSuccessResult(&page).
		Post(dropboxListFolder)
	if err := apiclient.HandleError(resp, err, "dropbox list folder"); err != nil {
		return nil, err
	}

	for {
		files = appendDropboxFiles(files, page.Entries)
		if !page.HasMore {
			break
		}

		cursor := page.Cursor
		page = dropboxListFolderResponse{}
		resp, err := d.api.R().
			SetContext(ctx).
			SetBody(&dropboxCursorRequest{Cursor: cursor}).
			SetSuccessResult(&page).
			Post(dropboxListFolderContinue)
		if err := apiclient.HandleError(resp, err, "dropbox list folder continue"); err != nil {
			return nil, err
		}
	}

	return files, nil
}

func appendDropboxFiles(files []*RemoteFile, entries []*dropboxEntry) []*RemoteFile {
	for _, entry := range entries {
		if entry.Tag != "file" || entry.ContentHash == "" {
			continue
		}
		key, err := filekey.New(entry.ID, entry.ContentHash)
		if err != nil {
			slog.Warn("dropbox skip entry", "path", entry.PathDisplay, "error", err)
			continue
		}
		files = append(files, &RemoteFile{
			Key:  key,
			Path: entry.PathDisplay,
			Size: entry.Size,
		})
	}
	return files
}

// ===================================================================================================

func (d *DropboxBackend) Download(ctx context.Context, path string) (*Download, error) {
	arg, err := headerSafeJSON(&dropboxPathArg{Path: path})
	if err != nil {
		return nil, fmt.Errorf("dropbox download arg: %w", err)
	}

	resp, err := d.content.R().
		SetContext(ctx).
		SetHeader(headerAPIArg, arg).
		DisableAutoReadResponse().
		Post(dropboxDownload)
	if err != nil {
		return nil, fmt.Errorf("dropbox download: http request: %w", err)
	}

	if resp.IsErrorState() {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &apiclient.StatusError{
			Operation:  "dropbox download",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var meta dropboxEntry
	if err := apiclient.Unmarshal([]byte(resp.Header.Get(headerAPIResult)), &meta); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("dropbox download: decode %s: %w", headerAPIResult, err)
	}

	canonical := meta.PathDisplay
	if canonical == "" {
		canonical = path
	}

	return &Download{
		Body: resp.Body,
		Path: canonical,
		Size: meta.Size,
	}, nil
}

// ===================================================================================================

func (d *DropboxBackend) SharedLinks(ctx context.Context, path string) ([]*SharedLink, error) {
	var result dropboxSharedLinksResponse
	resp, err := d.api.R().
		SetContext(ctx).
		SetBody(&dropboxSharedLinksRequest{Path: path, DirectOnly: true}).
		SetSuccessResult(&result).
		Post(dropboxListSharedLinks)
	if err := apiclient.HandleError(resp, err, "dropbox list shared links"); err != nil {
		// the file vanished since it was indexed
		if apiclient.IsStatus(err, http.StatusConflict) && strings.Contains(err.Error(), "not_found") {
			return nil, nil
		}
		return nil, err
	}

	links := make([]*SharedLink, 0, len(result.Links))
	for _, l := range result.Links {
		links = append(links, &SharedLink{
			URL:  l.URL,
			Name: l.Name,
			Path: l.PathLower,
		})
	}
	return links, nil
}

// ===================================================================================================

// dropboxTokenSource exchanges the long lived refresh token for short lived access tokens
type dropboxTokenSource struct {
	client       *req.Client
	appKey       string
	appSecret    string
	refreshToken string

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (t *dropboxTokenSource) authorize(_ *req.Client, r *req.Request) error {
	token, err := t.Token(r.Context())
	if err != nil {
		return err
	}
	r.SetBearerAuthToken(token)
	return nil
}

func (t *dropboxTokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiry) {
		return t.token, nil
	}

	var result dropboxTokenResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBasicAuth(t.appKey, t.appSecret).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": t.refreshToken,
		}).
		SetSuccessResult(&result).
		Post(dropboxOAuthToken)
	if err := apiclient.HandleError(resp, err, "dropbox token refresh"); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("dropbox token refresh: empty access token")
	}

	t.token = result.AccessToken
	t.expiry = time.Now().Add(time.Duration(result.ExpiresIn)*time.Second - dropboxTokenLeeway)
	slog.Debug("dropbox token refreshed", "expiresIn", result.ExpiresIn)
	return t.token, nil
}

// headerSafeJSON encodes v as JSON with every non-ASCII character escaped,
// as required for the Dropbox-API-Arg header.
func headerSafeJSON(v any) (string, error) {
	data, err := apiclient.Marshal(v)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, r := range string(data) {
		switch {
		case r < 0x7f:
			sb.WriteRune(r)
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String(), nil
}

var _ Backend = (*DropboxBackend)(nil)
