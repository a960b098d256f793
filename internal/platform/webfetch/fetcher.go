// Package webfetch downloads raw page content over HTTP. It enforces a
// per-request timeout, caps response bodies, and extracts the page title
// during the download so the capture phase gets both in one pass.
package webfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/clippings/clippings-api/internal/fetch"
)

const (
	// maxBodyBytes caps how much of a response body is read. Pages larger
	// than this are truncated rather than rejected.
	maxBodyBytes = 10 << 20 // 10 MiB

	userAgent = "clippings-bot/1.0 (+https://github.com/clippings/clippings-api)"
)

// HTTPFetcher implements the fetch.Fetcher interface over net/http.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher creates a new HTTPFetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "http_fetcher"),
	}
}

// FetchContent downloads the content at url.
func (f *HTTPFetcher) FetchContent(ctx context.Context, url string) (*fetch.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	content := string(body)
	title := extractTitle(content)

	f.logger.Debug("fetched page",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))

	return &fetch.Result{
		Content: content,
		Title:   title,
	}, nil
}

// extractTitle pulls the text of the first <title> element, if any.
func extractTitle(content string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	inTitle := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			inTitle = string(name) == "title"
		case html.EndTagToken:
			inTitle = false
		case html.TextToken:
			if inTitle {
				if title := strings.TrimSpace(tokenizer.Token().Data); title != "" {
					return title
				}
			}
		}
	}
}

// Ensure HTTPFetcher implements fetch.Fetcher
var _ fetch.Fetcher = (*HTTPFetcher)(nil)
