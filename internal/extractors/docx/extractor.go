// Package docx extracts text from Word (.docx) documents.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

const documentPart = "word/document.xml"

// ErrNoDocumentPart is returned for archives without word/document.xml.
var ErrNoDocumentPart = errors.New("docx archive has no " + documentPart)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads the main document part of a .docx archive. Explicit page
// breaks split the text into pages; a document without any is page 1.
// Pages left blank are dropped, keeping the numbering of the others.
type Extractor struct{}

// New creates a DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".docx"}
}

// Extract returns the text of each page that has any.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", documentPart, path, err)
		}
		defer rc.Close()

		pages, err := parseDocument(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return pages, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNoDocumentPart)
}

// parseDocument walks the WordprocessingML tokens in order. Text runs (w:t),
// tabs and line breaks are kept; w:br with type "page" starts a new page.
func parseDocument(ctx context.Context, r io.Reader) ([]domain.Page, error) {
	dec := xml.NewDecoder(r)

	var (
		pages  []domain.Page
		page   strings.Builder
		number = 1
		inText bool
	)
	flush := func() {
		text := strings.TrimSpace(page.String())
		if text != "" {
			pages = append(pages, domain.Page{Number: number, Text: text})
		}
		page.Reset()
		number++
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				page.WriteByte('\t')
			case "br", "cr":
				if attr(t, "type") == "page" {
					flush()
				} else {
					page.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				page.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				page.Write(t)
			}
		}
	}
	flush()
	return pages, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
