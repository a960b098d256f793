package webfetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPFetcher_FetchContent(t *testing.T) {
	t.Parallel()

	const page = `<html><head><title>  Example Page  </title></head><body>Hello</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "clippings-bot")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, testLogger())

	result, err := fetcher.FetchContent(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, page, result.Content)
	assert.Equal(t, "Example Page", result.Title)
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, testLogger())

	_, err := fetcher.FetchContent(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestHTTPFetcher_MissingTitle(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>No title here</body></html>`))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, testLogger())

	result, err := fetcher.FetchContent(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, result.Title)
}

func TestHTTPFetcher_ObservesContextCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fetcher.FetchContent(ctx, server.URL)
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for cancelled fetch to return")
	}
}
