package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenameColumn(t *testing.T) {
	table := &Table{
		Columns: []string{"id", "date"},
		Rows:    [][]string{{"1", "2024-01-01"}},
	}

	table.RenameColumn("id", "csv_id")
	assert.Equal(t, []string{"csv_id", "date"}, table.Columns)
	assert.Equal(t, [][]string{{"1", "2024-01-01"}}, table.Rows, "data must survive a rename")

	// Renaming a missing column is a no-op.
	table.RenameColumn("missing", "other")
	assert.Equal(t, []string{"csv_id", "date"}, table.Columns)
}

func TestAddColumn(t *testing.T) {
	table := &Table{
		Columns: []string{"date"},
		Rows:    [][]string{{"2024-01-01"}, {"2024-01-02"}},
	}

	table.AddColumn("csv_filename", "export.csv")
	assert.Equal(t, []string{"date", "csv_filename"}, table.Columns)
	for _, row := range table.Rows {
		assert.Equal(t, "export.csv", row[1])
	}
}

func TestColumnIndex(t *testing.T) {
	table := &Table{Columns: []string{"date", "habit", "value"}}
	assert.Equal(t, 1, table.ColumnIndex("habit"))
	assert.Equal(t, -1, table.ColumnIndex("nope"))
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Date", "date"},
		{"Weight (kgs)", "weight_(kgs)"},
		{"Distance Unit", "distance_unit"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeHeader(tt.in))
	}
}
