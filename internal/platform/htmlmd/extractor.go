// Package htmlmd converts captured HTML into markdown. The conversion is
// lossy on purpose: chrome elements (navigation, scripts, forms) are dropped
// so the result approximates the readable article text.
package htmlmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/clippings/clippings-api/internal/markdown"
)

// skippedElements are dropped entirely, including their children.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"button":   true,
	"head":     true,
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// MarkdownExtractor implements the markdown.Extractor interface by walking
// the parsed HTML tree.
type MarkdownExtractor struct {
	logger *slog.Logger
}

// NewMarkdownExtractor creates a new MarkdownExtractor.
func NewMarkdownExtractor(logger *slog.Logger) *MarkdownExtractor {
	return &MarkdownExtractor{
		logger: logger.With("component", "markdown_extractor"),
	}
}

// Extract converts content into markdown. The source URL is used to resolve
// relative links.
func (e *MarkdownExtractor) Extract(ctx context.Context, content, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		// An unparsable page URL only disables link resolution.
		base = nil
	}

	r := &renderer{base: base}
	r.walk(doc)

	out := strings.TrimSpace(blankLines.ReplaceAllString(r.out.String(), "\n\n"))

	e.logger.Debug("extracted markdown",
		"url", pageURL,
		"html_length", len(content),
		"markdown_length", len(out))

	return out, nil
}

// renderer accumulates markdown while walking the HTML tree.
type renderer struct {
	out       strings.Builder
	base      *url.URL
	listDepth int
	ordinals  []int // per-depth counters for ordered lists, 0 for unordered
}

func (r *renderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.text(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		if r.element(n) {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
}

// element renders one element and reports whether it consumed its children.
func (r *renderer) element(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		r.block(strings.Repeat("#", level) + " " + collapseSpace(textOf(n)))
		return true

	case "p":
		if text := r.inline(n); text != "" {
			r.block(text)
		}
		return true

	case "ul", "ol":
		ordinal := 0
		if n.Data == "ol" {
			ordinal = 1
		}
		r.listDepth++
		r.ordinals = append(r.ordinals, ordinal)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c)
		}
		r.ordinals = r.ordinals[:len(r.ordinals)-1]
		r.listDepth--
		if r.listDepth == 0 {
			r.out.WriteString("\n")
		}
		return true

	case "li":
		indent := strings.Repeat("  ", r.listDepth-1)
		marker := "-"
		if len(r.ordinals) > 0 && r.ordinals[len(r.ordinals)-1] > 0 {
			marker = fmt.Sprintf("%d.", r.ordinals[len(r.ordinals)-1])
			r.ordinals[len(r.ordinals)-1]++
		}
		r.out.WriteString(indent + marker + " " + r.inline(n) + "\n")
		return true

	case "pre":
		r.block("```\n" + strings.TrimRight(textOf(n), "\n") + "\n```")
		return true

	case "blockquote":
		text := r.inline(n)
		if text != "" {
			r.block("> " + text)
		}
		return true

	case "hr":
		r.block("---")
		return true

	case "table":
		r.table(n)
		return true
	}

	return false
}

// inline renders the node's subtree as a single line of markdown.
func (r *renderer) inline(n *html.Node) string {
	var b strings.Builder
	r.inlineInto(&b, n)
	return collapseSpace(b.String())
}

func (r *renderer) inlineInto(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if skippedElements[c.Data] {
				continue
			}
			switch c.Data {
			case "a":
				var inner strings.Builder
				r.inlineInto(&inner, c)
				text := collapseSpace(inner.String())
				href := r.resolve(attr(c, "href"))
				if text == "" {
					continue
				}
				if href == "" {
					b.WriteString(text)
				} else {
					b.WriteString("[" + text + "](" + href + ")")
				}
			case "img":
				if src := r.resolve(attr(c, "src")); src != "" {
					b.WriteString("![" + attr(c, "alt") + "](" + src + ")")
				}
			case "strong", "b":
				var inner strings.Builder
				r.inlineInto(&inner, c)
				if text := collapseSpace(inner.String()); text != "" {
					b.WriteString("**" + text + "**")
				}
			case "em", "i":
				var inner strings.Builder
				r.inlineInto(&inner, c)
				if text := collapseSpace(inner.String()); text != "" {
					b.WriteString("*" + text + "*")
				}
			case "code":
				if text := collapseSpace(textOf(c)); text != "" {
					b.WriteString("`" + text + "`")
				}
			case "br":
				b.WriteString(" ")
			default:
				r.inlineInto(b, c)
			}
		}
	}
}

// table renders a simple pipe table. Nested structure inside cells is
// flattened to text.
func (r *renderer) table(n *html.Node) {
	var rows [][]string
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "tr" {
			var cells []string
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, r.inline(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	if len(rows) == 0 {
		return
	}

	var b strings.Builder
	for i, cells := range rows {
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		if i == 0 {
			separators := make([]string, len(cells))
			for j := range separators {
				separators[j] = "---"
			}
			b.WriteString("| " + strings.Join(separators, " | ") + " |\n")
		}
	}
	r.block(strings.TrimRight(b.String(), "\n"))
}

func (r *renderer) block(text string) {
	r.out.WriteString(text + "\n\n")
}

func (r *renderer) text(data string) {
	// Bare text outside any handled block becomes its own paragraph.
	if text := collapseSpace(data); text != "" {
		r.out.WriteString(text + "\n\n")
	}
}

// resolve turns a possibly relative reference into an absolute URL.
func (r *renderer) resolve(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "javascript:") {
		return ""
	}
	if r.base == nil {
		return ref
	}
	resolved, err := r.base.Parse(ref)
	if err != nil {
		return ref
	}
	return resolved.String()
}

// attr returns the value of the named attribute, or "" if absent.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Ensure MarkdownExtractor implements markdown.Extractor
var _ markdown.Extractor = (*MarkdownExtractor)(nil)
