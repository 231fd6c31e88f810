// Package xlsx extracts spreadsheet text, one page per worksheet.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads .xlsx workbooks. Worksheet n becomes page n; empty
// worksheets are skipped but keep their number.
type Extractor struct{}

// New creates a workbook extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".xlsx"}
}

// Extract renders each worksheet as its name followed by one line per row,
// cells separated by tabs.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	pages := make([]domain.Page, 0, len(sheets))
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("xlsx: sheet %q: %v", sheet, err)
			continue
		}
		if text := renderSheet(sheet, rows); text != "" {
			pages = append(pages, domain.Page{Number: i + 1, Text: text})
		}
	}
	logger.Debug("xlsx: %d/%d sheets with text", len(pages), len(sheets))
	return pages, nil
}

// renderSheet returns "" when no cell has text.
func renderSheet(name string, rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		cells := make([]string, len(row))
		empty := true
		for i, c := range row {
			cells[i] = strings.Join(strings.Fields(c), " ")
			if cells[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "\t"), "\t"))
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return ""
	}
	return name + "\n" + strings.TrimRight(b.String(), "\n")
}
