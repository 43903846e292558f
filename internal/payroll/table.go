package payroll

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is an immutable in-memory payroll spreadsheet: an ordered header row
// and the data rows beneath it. Cells are kept as the formatted strings the
// spreadsheet presents; downstream stages treat them as opaque text.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Load parses an uploaded spreadsheet (.xlsx/.xls) into a Table. The first
// row of the first sheet is the header; data rows are padded or truncated to
// the header width. No schema validation is performed on names or types.
func Load(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	header := rows[0]
	if len(header) == 0 {
		return nil, fmt.Errorf("spreadsheet has an empty header row")
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(header))
		copy(cells, row)
		data = append(data, cells)
	}

	return &Table{Columns: header, Rows: data}, nil
}

// Empty reports whether the table holds no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Render produces a human-readable plain-text view of the table with
// space-padded columns. It is meant for a language model to read, not for
// machine reparsing.
func (t *Table) Render() string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if pad := widths[i] - len(cell); pad > 0 && i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}

	writeRow(t.Columns)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return b.String()
}
