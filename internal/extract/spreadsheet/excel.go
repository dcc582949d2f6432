// Package spreadsheet turns tabular binaries into ExtractedDocuments without any model call.
package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

const (
	DocumentType = "spreadsheet"

	// rawTextRowLimit bounds the human-readable rendering only; Tables keep every row.
	rawTextRowLimit = 50

	placeholderKey = "__EMPTY"
)

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract reads the first sheet of an xlsx workbook. Later sheets are ignored.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (entity.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return entity.ExtractedDocument{}, err
	}
	start := time.Now()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		e.logger.Warn("spreadsheet.open.failed", "file", filename, "error", err)
		return entity.ExtractedDocument{}, common.ParseError("cannot decode spreadsheet", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("spreadsheet.close.failed", "file", filename, "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return entity.ExtractedDocument{}, common.ParseError("workbook has no sheets", nil)
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet)
	if err != nil {
		e.logger.Warn("spreadsheet.rows.failed", "file", filename, "sheet", sheet, "error", err)
		return entity.ExtractedDocument{}, common.ParseError(fmt.Sprintf("cannot read sheet %q", sheet), err)
	}

	table, shifted := BuildTable(raw)
	doc := FromTable(sheet, table)

	e.logger.Info("spreadsheet.extract.ok",
		"file", filename,
		"sheet", sheet,
		"sheets_ignored", len(sheets)-1,
		"headers", len(table.Headers),
		"rows", len(table.Rows),
		"header_shift", shifted,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// BuildTable turns raw grid rows (first row = header keys) into a Table. When the
// header row contains blank cells, the keys are placeholders; if more than one data
// row follows, headers are re-derived from the first data row and the remaining rows
// are remapped onto them. The second return value reports whether that shift happened.
func BuildTable(raw [][]string) (entity.Table, bool) {
	raw = dropBlankRows(raw)
	if len(raw) == 0 {
		return entity.Table{Headers: []string{}, Rows: [][]string{}}, false
	}

	width := 0
	for _, r := range raw {
		if len(r) > width {
			width = len(r)
		}
	}
	keys, hasPlaceholder := headerKeys(raw[0], width)
	data := raw[1:]

	if hasPlaceholder && len(data) > 1 {
		var headers []string
		var idx []int
		for i, v := range data[0] {
			label := strings.TrimSpace(v)
			if label == "" {
				continue
			}
			headers = append(headers, label)
			idx = append(idx, i)
		}
		rows := make([][]string, 0, len(data)-1)
		for _, r := range data[1:] {
			row := make([]string, len(idx))
			for j, col := range idx {
				row[j] = cellAt(r, col)
			}
			rows = append(rows, row)
		}
		if headers == nil {
			headers = []string{}
		}
		return entity.Table{Headers: headers, Rows: rows}, true
	}

	rows := make([][]string, 0, len(data))
	for _, r := range data {
		row := make([]string, len(keys))
		for i := range keys {
			row[i] = cellAt(r, i)
		}
		rows = append(rows, row)
	}
	return entity.Table{Headers: keys, Rows: rows}, false
}

// FromTable renders the single-table document for a sheet.
func FromTable(sheet string, table entity.Table) entity.ExtractedDocument {
	doc := entity.ExtractedDocument{
		RawText:      renderRawText(sheet, table),
		Title:        sheet,
		DocumentType: DocumentType,
		Tables:       []entity.Table{table},
	}
	if len(table.Headers) == 2 {
		for r := range table.Rows {
			key := strings.TrimSpace(table.Cell(r, 0))
			value := strings.TrimSpace(table.Cell(r, 1))
			if key != "" && value != "" {
				doc.SetPair(key, value)
			}
		}
	}
	return doc
}

func renderRawText(sheet string, table entity.Table) string {
	headerLine := strings.Join(table.Headers, " | ")
	lines := []string{
		"Sheet: " + sheet,
		fmt.Sprintf("Total Rows: %d", len(table.Rows)),
		"",
		headerLine,
		strings.Repeat("-", len(headerLine)),
	}
	for i, row := range table.Rows {
		if i >= rawTextRowLimit {
			break
		}
		lines = append(lines, strings.Join(row, " | "))
	}
	more := ""
	if len(table.Rows) > rawTextRowLimit {
		more = fmt.Sprintf("... and %d more rows", len(table.Rows)-rawTextRowLimit)
	}
	lines = append(lines, more)
	return strings.Join(lines, "\n")
}

// headerKeys labels every column of the sheet's used width; blank or missing
// header cells get placeholder keys.
func headerKeys(row []string, width int) ([]string, bool) {
	keys := make([]string, width)
	placeholders := 0
	for i := range keys {
		v := strings.TrimSpace(cellAt(row, i))
		if v != "" {
			keys[i] = v
			continue
		}
		if placeholders == 0 {
			keys[i] = placeholderKey
		} else {
			keys[i] = fmt.Sprintf("%s_%d", placeholderKey, placeholders)
		}
		placeholders++
	}
	return keys, placeholders > 0
}

func dropBlankRows(raw [][]string) [][]string {
	out := make([][]string, 0, len(raw))
	for _, r := range raw {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
