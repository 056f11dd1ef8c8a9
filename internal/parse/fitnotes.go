package parse

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// FitNotes parses a flat FitNotes workout export. Each source row maps
// to exactly one output row; the only transformation is header
// normalization.
func FitNotes(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse FitNotes CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("FitNotes CSV is empty")
	}

	columns := make([]string, len(records[0]))
	for i, label := range records[0] {
		columns[i] = normalizeHeader(label)
	}

	return &Table{
		Columns: columns,
		Rows:    records[1:],
	}, nil
}
