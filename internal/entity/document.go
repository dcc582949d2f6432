package entity

// Table is one extracted table. Rows may be ragged: a row can be shorter or
// longer than Headers and callers must index with bounds checks.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Cell returns row r, column c, or "" when either index is out of range.
func (t Table) Cell(r, c int) string {
	if r < 0 || r >= len(t.Rows) {
		return ""
	}
	row := t.Rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}

// ExtractedDocument is the normalized output of every extractor.
// RawText is never empty for a successful extraction.
type ExtractedDocument struct {
	RawText       string            `json:"rawText"`
	Title         string            `json:"title,omitempty"`
	DocumentType  string            `json:"documentType,omitempty"`
	Tables        []Table           `json:"tables,omitempty"`
	KeyValuePairs map[string]string `json:"keyValuePairs,omitempty"`
	Dates         []string          `json:"dates,omitempty"`
}

// AddDate appends a raw date token unless it is already present, keeping first-seen order.
func (d *ExtractedDocument) AddDate(token string) {
	for _, existing := range d.Dates {
		if existing == token {
			return
		}
	}
	d.Dates = append(d.Dates, token)
}

// SetPair records a key-value pair, allocating the map on first use.
func (d *ExtractedDocument) SetPair(key, value string) {
	if d.KeyValuePairs == nil {
		d.KeyValuePairs = make(map[string]string)
	}
	d.KeyValuePairs[key] = value
}
