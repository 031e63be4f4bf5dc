// Package html extracts visible text from HTML documents.
package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// skipped elements never contribute text.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"svg":      true,
	"template": true,
}

// block elements start a new line.
var block = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "section": true, "article": true,
}

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Higher than plaintext
}

// Extract returns the visible text, one line per block element.
func (e *Extractor) Extract(_ context.Context, blob []byte, _ string) (string, error) {
	if blob == nil {
		return "", domain.ErrInvalidInput
	}

	doc, err := html.Parse(bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var sb strings.Builder
	walk(doc, &sb)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func walk(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		if skipped[n.Data] {
			return
		}
		if block[n.Data] {
			sb.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb)
	}

	if n.Type == html.ElementNode && block[n.Data] {
		sb.WriteString("\n")
	}
}
