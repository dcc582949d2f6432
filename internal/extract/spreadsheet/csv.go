package spreadsheet

import (
	"strings"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// FromCSV parses a hosted spreadsheet's CSV export into a single table.
// Known limitation: cells are split on every comma and only a leading/trailing
// quote is trimmed, so quoted cells containing commas are split apart.
func FromCSV(text string) (entity.ExtractedDocument, error) {
	if strings.TrimSpace(text) == "" {
		return entity.ExtractedDocument{}, common.ParseError("empty CSV export", nil)
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	table := entity.Table{Headers: splitCSVLine(lines[0]), Rows: make([][]string, 0, len(lines)-1)}
	for _, l := range lines[1:] {
		table.Rows = append(table.Rows, splitCSVLine(l))
	}
	return entity.ExtractedDocument{
		RawText:      text,
		DocumentType: DocumentType,
		Tables:       []entity.Table{table},
	}, nil
}

func splitCSVLine(line string) []string {
	cells := strings.Split(line, ",")
	for i, c := range cells {
		c = strings.TrimSpace(c)
		c = strings.TrimPrefix(c, `"`)
		c = strings.TrimSuffix(c, `"`)
		cells[i] = c
	}
	return cells
}
