package images

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knearme/showcase/core/project"
)

func newTestFetcher(t *testing.T, privateHosts ...string) *Fetcher {
	t.Helper()
	fetcher, err := NewFetcher(Config{PrivateHosts: privateHosts},
		slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return fetcher
}

func TestNewFetcher_InvalidPattern(t *testing.T) {
	_, err := NewFetcher(Config{PrivateHosts: []string{"[unclosed"}}, nil)
	assert.Error(t, err)
}

func TestPrepare_PublicPassThrough(t *testing.T) {
	fetcher := newTestFetcher(t, "*.storage.internal")

	refs := []project.ImageRef{
		{ID: "img-1", URL: "https://cdn.example.com/before.jpg"},
		{ID: "img-2", URL: "https://cdn.example.com/after.jpg"},
	}
	attachments := fetcher.Prepare(context.Background(), refs)

	require.Len(t, attachments, 2)
	assert.Equal(t, "https://cdn.example.com/before.jpg", attachments[0].URL)
	assert.Empty(t, attachments[0].Data)
}

func TestPrepare_PrivateInlined(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	host := hostOf(t, srv.URL)
	fetcher := newTestFetcher(t, host)

	refs := []project.ImageRef{{ID: "img-1", URL: srv.URL + "/before.jpg"}}

	attachments := fetcher.Prepare(context.Background(), refs)
	require.Len(t, attachments, 1)
	assert.Equal(t, "image/jpeg", attachments[0].MediaType)
	assert.Equal(t, []byte("jpeg-bytes"), attachments[0].Data)
	assert.Empty(t, attachments[0].URL)

	// A second prepare for the same URL is served from the cache.
	fetcher.Prepare(context.Background(), refs)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPrepare_FailedDownloadSkipsImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := newTestFetcher(t, hostOf(t, srv.URL))

	attachments := fetcher.Prepare(context.Background(), []project.ImageRef{
		{ID: "img-1", URL: srv.URL + "/missing.jpg"},
		{ID: "img-2", URL: "https://cdn.example.com/ok.jpg"},
	})

	require.Len(t, attachments, 1)
	assert.Equal(t, "https://cdn.example.com/ok.jpg", attachments[0].URL)
}

func TestPrepare_SkipsEmptyURL(t *testing.T) {
	fetcher := newTestFetcher(t)
	attachments := fetcher.Prepare(context.Background(), []project.ImageRef{{ID: "img-1"}})
	assert.Empty(t, attachments)
}

func hostOf(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Hostname()
}
