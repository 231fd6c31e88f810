// Package html extracts readable text from HTML pages saved to disk.
package html

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/extractors/plaintext"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// noise is removed before text is read.
const noise = "head, script, style, noscript, svg, template, nav, footer, aside"

// blocks end with a line break in the extracted text.
const blocks = "p, div, br, hr, h1, h2, h3, h4, h5, h6, li, tr, blockquote, pre, table, section, article, dt, dd"

var multiSpaces = regexp.MustCompile(`[ \t\x{00A0}]+`)

// Extractor reads .html and .htm files as a single page.
type Extractor struct{}

// New creates an HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".html", ".htm"}
}

// Extract returns the visible text as page 1. Files that are not valid
// UTF-8 are decoded with the charset their meta tags declare.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		if r, err = charset.NewReader(r, "text/html"); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return plaintext.SinglePage(Text(doc.Selection)), nil
}

// Text returns the visible text of a selection, one line per block element.
func Text(sel *goquery.Selection) string {
	sel = sel.Clone()
	sel.Find(noise).Remove()
	for _, n := range sel.Find(blocks).Nodes {
		n.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: "\n"})
	}

	lines := strings.Split(sel.Text(), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
