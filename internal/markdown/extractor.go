// Package markdown defines the boundary interface for converting raw page
// content into markdown. Concrete conversion lives in
// internal/platform/htmlmd.
package markdown

import "context"

// Extractor converts raw captured content into markdown text.
type Extractor interface {
	// Extract converts content into markdown. The source URL is provided so
	// implementations can resolve relative links.
	Extract(ctx context.Context, content, url string) (string, error)
}
