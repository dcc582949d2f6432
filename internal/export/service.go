// Package export writes the audit workbook: saved evidence, the source documents
// behind it and everything extracted from them.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

const (
	SheetEvidence  = "Evidence"
	SheetSources   = "Sources"
	SheetTables    = "Tables"
	SheetKeyValues = "Key Values"
)

// cellLimit is the longest string excelize accepts in a cell.
const cellLimit = 32767

// Store is the read side of the evidence store.
type Store interface {
	ListEvidence(ctx context.Context) ([]*entity.SavedEvidence, error)
	ListSourceDocuments(ctx context.Context, objectiveCode string) ([]*entity.SourceDocument, error)
}

// Service produces XLSX bytes for audits.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportAuditXLSX returns a workbook covering every saved evidence document.
func (s *Service) ExportAuditXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	evidence, err := s.store.ListEvidence(ctx)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	sort.SliceStable(evidence, func(i, j int) bool { return evidence[i].ObjectiveCode < evidence[j].ObjectiveCode })

	var sources []*entity.SourceDocument
	for _, ev := range evidence {
		docs, err := s.store.ListSourceDocuments(ctx, ev.ObjectiveCode)
		if err != nil {
			return nil, fmt.Errorf("list sources for %s: %w", ev.ObjectiveCode, err)
		}
		sources = append(sources, docs...)
	}

	w, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	defer func() { _ = w.f.Close() }()

	if err := w.writeEvidence(evidence); err != nil {
		return nil, err
	}
	if err := w.writeSources(sources); err != nil {
		return nil, err
	}
	tables, pairs, err := w.writeExtracted(sources)
	if err != nil {
		return nil, err
	}

	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"evidence", len(evidence),
		"sources", len(sources),
		"tables", tables,
		"pairs", pairs,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

type workbook struct {
	f    *excelize.File
	bold int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetEvidence); err != nil {
		_ = f.Close()
		return nil, err
	}
	for _, name := range []string{SheetSources, SheetTables, SheetKeyValues} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &workbook{f: f, bold: bold}, nil
}

func (w *workbook) row(sheet string, r int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		return err
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			values[i] = clip(s)
		}
	}
	return w.f.SetSheetRow(sheet, cell, &values)
}

func (w *workbook) header(sheet string, r int, values ...any) error {
	if err := w.row(sheet, r, values...); err != nil {
		return err
	}
	return w.f.SetRowStyle(sheet, r, r, w.bold)
}

func (w *workbook) writeEvidence(evidence []*entity.SavedEvidence) error {
	const sheet = SheetEvidence
	if err := w.header(sheet, 1, "Objective", "Title", "Hospital", "Source Files", "Body Characters", "Updated"); err != nil {
		return err
	}
	for i, ev := range evidence {
		err := w.row(sheet, i+2,
			ev.ObjectiveCode,
			ev.Title,
			ev.HospitalID,
			strings.Join(ev.SourceFilenames, ", "),
			len(ev.DocumentBody),
			ev.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
	}
	_ = w.f.SetColWidth(sheet, "A", "A", 12)
	_ = w.f.SetColWidth(sheet, "B", "B", 48)
	_ = w.f.SetColWidth(sheet, "D", "D", 60)
	_ = w.f.SetColWidth(sheet, "F", "F", 22)
	return nil
}

func (w *workbook) writeSources(sources []*entity.SourceDocument) error {
	const sheet = SheetSources
	if err := w.header(sheet, 1, "Objective", "File", "Type", "Size", "Source", "Status", "Error"); err != nil {
		return err
	}
	for i, d := range sources {
		err := w.row(sheet, i+2,
			d.ObjectiveCode,
			d.FileName,
			d.FileType,
			d.FileSize,
			string(d.SourceType),
			string(d.Status),
			d.ExtractionError,
		)
		if err != nil {
			return err
		}
	}
	_ = w.f.SetColWidth(sheet, "B", "B", 40)
	_ = w.f.SetColWidth(sheet, "G", "G", 60)
	return nil
}

// writeExtracted lays every table out one after another on the Tables sheet,
// each under a caption row and separated by a blank row, and lists the key-value
// pairs with their source file.
func (w *workbook) writeExtracted(sources []*entity.SourceDocument) (tables, pairs int, err error) {
	tr, kr := 1, 1
	if err := w.header(SheetKeyValues, kr, "Objective", "File", "Key", "Value"); err != nil {
		return 0, 0, err
	}
	kr++

	for _, d := range sources {
		if d.Extracted == nil {
			continue
		}
		for n, t := range d.Extracted.Tables {
			caption := fmt.Sprintf("%s / %s / table %d (%d rows)", d.ObjectiveCode, d.FileName, n+1, len(t.Rows))
			if err := w.header(SheetTables, tr, caption); err != nil {
				return tables, pairs, err
			}
			tr++
			if err := w.header(SheetTables, tr, strs(t.Headers)...); err != nil {
				return tables, pairs, err
			}
			tr++
			for _, r := range t.Rows {
				if err := w.row(SheetTables, tr, strs(r)...); err != nil {
					return tables, pairs, err
				}
				tr++
			}
			tr++
			tables++
		}

		keys := make([]string, 0, len(d.Extracted.KeyValuePairs))
		for k := range d.Extracted.KeyValuePairs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := w.row(SheetKeyValues, kr, d.ObjectiveCode, d.FileName, k, d.Extracted.KeyValuePairs[k]); err != nil {
				return tables, pairs, err
			}
			kr++
			pairs++
		}
	}
	_ = w.f.SetColWidth(SheetKeyValues, "B", "B", 40)
	_ = w.f.SetColWidth(SheetKeyValues, "C", "C", 28)
	_ = w.f.SetColWidth(SheetKeyValues, "D", "D", 60)
	return tables, pairs, nil
}

func strs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= cellLimit {
		return s
	}
	return string([]rune(s)[:cellLimit-1]) + "…"
}
