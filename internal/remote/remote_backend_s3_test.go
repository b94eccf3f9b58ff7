package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openmined/dropsearch/internal/filekey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPageXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>docs</Name>
  <KeyCount>%d</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>%t</IsTruncated>
  <NextContinuationToken>%s</NextContinuationToken>
  %s
</ListBucketResult>`

func s3Object(key, etag string, size int) string {
	return fmt.Sprintf(`<Contents><Key>%s</Key><ETag>&quot;%s&quot;</ETag><Size>%d</Size><LastModified>2025-01-01T00:00:00.000Z</LastModified></Contents>`, key, etag, size)
}

func newS3TestBackend(t *testing.T, handler http.HandlerFunc) *S3Backend {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend, err := NewS3BackendWithConfig(&S3Config{
		BucketName: "docs",
		Region:     "us-east-1",
		AccessKey:  "access",
		SecretKey:  "secret",
		Endpoint:   srv.URL,
		LinkExpiry: time.Hour,
	})
	require.NoError(t, err)
	return backend
}

func TestS3Backend_ListPaginates(t *testing.T) {
	backend := newS3TestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/docs"))
		w.Header().Set("Content-Type", "application/xml")

		if r.URL.Query().Get("continuation-token") == "" {
			body := s3Object("notes/a.txt", "etag-a", 3) + s3Object("notes/", "d41d8", 0)
			fmt.Fprintf(w, listPageXML, 2, true, "page-2", body)
			return
		}

		assert.Equal(t, "page-2", r.URL.Query().Get("continuation-token"))
		fmt.Fprintf(w, listPageXML, 1, false, "", s3Object("notes/b.pdf", "etag-b", 10))
	})

	files, err := backend.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filekey.Key("notes/a.txt;etag-a"), files[0].Key)
	assert.Equal(t, "notes/a.txt", files[0].Path)
	assert.Equal(t, filekey.Key("notes/b.pdf;etag-b"), files[1].Key)
}

func TestS3Backend_Download(t *testing.T) {
	backend := newS3TestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docs/notes/a.txt", r.URL.Path)
		w.Header().Set("ETag", `"etag-a"`)
		w.Header().Set("Content-Length", "5")
		_, _ = w.Write([]byte("hello"))
	})

	dl, err := backend.Download(context.Background(), "notes/a.txt")
	require.NoError(t, err)
	defer dl.Body.Close()

	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "notes/a.txt", dl.Path)
}

func TestS3Backend_SharedLinksPresigns(t *testing.T) {
	backend := newS3TestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("presigning must not call the server: %s", r.URL)
	})

	links, err := backend.SharedLinks(context.Background(), "notes/a report.txt")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Contains(t, links[0].URL, "/docs/notes/a%20report.txt")
	assert.Contains(t, links[0].URL, "X-Amz-Expires=3600")
	assert.Equal(t, "a report.txt", links[0].Name)
	assert.Equal(t, "notes/a report.txt", links[0].Path)
}
