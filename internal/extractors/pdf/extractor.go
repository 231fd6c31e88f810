// Package pdf extracts per-page text from PDF files.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// MaxFileSize caps the bytes read into memory for one document.
const MaxFileSize = 200 << 20

// ErrFileTooLarge is returned for files above MaxFileSize.
var ErrFileTooLarge = errors.New("pdf too large for in-memory extraction")

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// pageSource is the part of a PDF reader the extractor walks.
type pageSource interface {
	NumPage() int
	PageText(n int) (text string, ok bool, err error)
}

// Extractor reads PDF files page by page. Pages without text are skipped,
// so page numbers in the result may have gaps.
type Extractor struct {
	open func(data []byte) (pageSource, error)
}

// New creates a PDF extractor backed by ledongthuc/pdf.
func New() *Extractor {
	return &Extractor{open: openReader}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract returns one Page per physical page that has text.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.Size() > MaxFileSize {
		return nil, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	src, err := e.open(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return extractPages(ctx, src)
}

func extractPages(ctx context.Context, src pageSource) ([]domain.Page, error) {
	total := src.NumPage()
	pages := make([]domain.Page, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, ok, err := src.PageText(n)
		if err != nil {
			logger.Warn("pdf: page %d: %v", n, err)
			continue
		}
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: n, Text: text})
	}
	logger.Debug("pdf: %d/%d pages with text", len(pages), total)
	return pages, nil
}

type reader struct {
	r *pdf.Reader
}

func openReader(data []byte) (pageSource, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &reader{r: r}, nil
}

func (r *reader) NumPage() int {
	return r.r.NumPage()
}

func (r *reader) PageText(n int) (string, bool, error) {
	page := r.r.Page(n)
	if page.V.IsNull() {
		return "", false, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}
