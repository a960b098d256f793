// Package fetch defines the boundary interface for downloading raw page
// content. The queue engine depends on this interface only; concrete
// transport lives in internal/platform/webfetch.
package fetch

import "context"

// Result holds the outcome of a successful fetch.
type Result struct {
	// Content is the raw page body.
	Content string

	// Title is the page title when one could be determined, otherwise empty.
	Title string
}

// Fetcher downloads the raw content of a URL.
type Fetcher interface {
	// FetchContent downloads the content at url. The implementation is
	// responsible for enforcing its own timeout; ctx carries cancellation.
	FetchContent(ctx context.Context, url string) (*Result, error)
}
