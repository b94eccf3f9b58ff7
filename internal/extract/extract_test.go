package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExtractor struct {
	calls []string
	text  string
}

func (r *recordingExtractor) Extract(_ context.Context, name string, _ []byte) (string, error) {
	r.calls = append(r.calls, name)
	return r.text, nil
}

func TestPlainExtractor(t *testing.T) {
	p := &PlainExtractor{}
	ctx := context.Background()

	text, err := p.Extract(ctx, "a.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	// UTF-16LE with BOM
	text, err = p.Extract(ctx, "b.txt", []byte{0xff, 0xfe, 'h', 0, 'i', 0})
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	// invalid UTF-8 degrades instead of failing
	text, err = p.Extract(ctx, "c.txt", []byte{'o', 'k', 0xff, '!'})
	require.NoError(t, err)
	assert.Equal(t, "ok�!", text)
}

func TestAutoExtractor_Routing(t *testing.T) {
	ctx := context.Background()
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	t.Run("plain text stays local", func(t *testing.T) {
		rich := &recordingExtractor{text: "rich"}
		auto := &AutoExtractor{Plain: &PlainExtractor{}, Rich: rich}

		text, err := auto.Extract(ctx, "a.txt", []byte("just some words"))
		require.NoError(t, err)
		assert.Equal(t, "just some words", text)
		assert.Empty(t, rich.calls)
	})

	t.Run("binary goes to rich", func(t *testing.T) {
		rich := &recordingExtractor{text: "pdf text"}
		auto := &AutoExtractor{Plain: &PlainExtractor{}, Rich: rich}

		text, err := auto.Extract(ctx, "doc.pdf", pdf)
		require.NoError(t, err)
		assert.Equal(t, "pdf text", text)
		assert.Equal(t, []string{"doc.pdf"}, rich.calls)
	})

	t.Run("binary without rich is empty", func(t *testing.T) {
		auto := &AutoExtractor{Plain: &PlainExtractor{}}

		text, err := auto.Extract(ctx, "doc.pdf", pdf)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("html without rich falls back to plain", func(t *testing.T) {
		auto := &AutoExtractor{Plain: &PlainExtractor{}}

		text, err := auto.Extract(ctx, "page.html", []byte("<html><body>hello</body></html>"))
		require.NoError(t, err)
		assert.Contains(t, text, "hello")
	})

	t.Run("empty content", func(t *testing.T) {
		rich := &recordingExtractor{}
		auto := &AutoExtractor{Plain: &PlainExtractor{}, Rich: rich}

		text, err := auto.Extract(ctx, "empty.bin", nil)
		require.NoError(t, err)
		assert.Empty(t, text)
		assert.Empty(t, rich.calls)
	})
}

func TestTikaExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))

		body, _ := io.ReadAll(r.Body)
		switch string(body) {
		case "encrypted":
			w.WriteHeader(http.StatusUnprocessableEntity)
		case "overloaded":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte("extracted: " + string(body)))
		}
	}))
	defer srv.Close()

	tika := NewTikaExtractor(srv.URL+"/", 0)
	ctx := context.Background()

	text, err := tika.Extract(ctx, "/Docs/report.docx", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "extracted: content", text)

	text, err = tika.Extract(ctx, "/Docs/locked.pdf", []byte("encrypted"))
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = tika.Extract(ctx, "/Docs/any.pdf", []byte("overloaded"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTikaExtractor_TimeoutIsPerDocumentAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte("too late"))
	}))
	defer srv.Close()

	tika := NewTikaExtractor(srv.URL, 50*time.Millisecond)
	_, err := tika.Extract(context.Background(), "slow.pdf", []byte("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTikaExtractor_DroppedConnectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if assert.NoError(t, err) {
			conn.Close()
		}
	}))
	defer srv.Close()

	tika := NewTikaExtractor(srv.URL, 0)
	_, err := tika.Extract(context.Background(), "a.pdf", []byte("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTikaExtractor_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tika := NewTikaExtractor(url, 0)
	_, err := tika.Extract(context.Background(), "a.pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNew(t *testing.T) {
	ex, err := New(&Config{})
	require.NoError(t, err)
	assert.Nil(t, ex.(*AutoExtractor).Rich)

	ex, err = New(&Config{TikaURL: "http://localhost:9998"})
	require.NoError(t, err)
	assert.NotNil(t, ex.(*AutoExtractor).Rich)

	_, err = New(&Config{TikaURL: "localhost:9998"})
	assert.Error(t, err)
}
