// Package parse converts the two recognized export formats into one
// canonical record table: ordered rows sharing a single column set.
package parse

import "strings"

// Table is an ordered record set. Every row has exactly one value per
// column, positionally aligned with Columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// RenameColumn renames a column in place, preserving its data. It is a
// no-op if the column does not exist.
func (t *Table) RenameColumn(from, to string) {
	for i, col := range t.Columns {
		if col == from {
			t.Columns[i] = to
			return
		}
	}
}

// AddColumn appends a column with the same value on every row.
func (t *Table) AddColumn(name, value string) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// normalizeHeader lower-cases a header label and replaces spaces with
// underscores, so free-form CSV labels become usable column names.
func normalizeHeader(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}
