package parse

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// checkmarksMember is the one file inside a Loop Habit Tracker export
// that holds the full wide-format checkmark table.
const checkmarksMember = "Checkmarks.csv"

// LoopHabits parses a zipped Loop Habit Tracker export and reshapes the
// wide Checkmarks table (one row per date, one column per habit) into
// long format: one row per (date, habit) pair.
func LoopHabits(data []byte) (*Table, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP archive: %w", err)
	}

	member, err := findMember(archive, checkmarksMember)
	if err != nil {
		return nil, err
	}

	wide, err := parseCheckmarks(member)
	if err != nil {
		return nil, err
	}

	return meltCheckmarks(wide)
}

func findMember(archive *zip.Reader, name string) (*zip.File, error) {
	for _, file := range archive.File {
		if file.Name == name {
			return file, nil
		}
	}
	return nil, fmt.Errorf("member not found: %s is missing from the archive", name)
}

// parseCheckmarks reads the member CSV, normalizes headers, and drops
// columns with blank or "unnamed" headers (artifacts of trailing
// delimiters in the source).
func parseCheckmarks(member *zip.File) (*Table, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", member.Name, err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", member.Name, err)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	// Exports sometimes carry trailing commas; tolerate ragged rows.
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", member.Name, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", member.Name)
	}

	var columns []string
	var keep []int
	for i, label := range records[0] {
		name := normalizeHeader(label)
		if name == "" || strings.HasPrefix(name, "unnamed") {
			continue
		}
		columns = append(columns, name)
		keep = append(keep, i)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]string, len(keep))
		for j, src := range keep {
			if src < len(record) {
				row[j] = record[src]
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// meltCheckmarks reshapes wide to long: for every (date, habit) pair one
// output row {date, habit, value}. Empty cells are preserved as empty
// values, not dropped. Output has R x C rows for R dates and C habits.
func meltCheckmarks(wide *Table) (*Table, error) {
	dateIdx := wide.ColumnIndex("date")
	if dateIdx < 0 {
		return nil, fmt.Errorf("%s has no date column", checkmarksMember)
	}

	long := &Table{Columns: []string{"date", "habit", "value"}}
	for habitIdx, habit := range wide.Columns {
		if habitIdx == dateIdx {
			continue
		}
		for _, row := range wide.Rows {
			long.Rows = append(long.Rows, []string{row[dateIdx], habit, row[habitIdx]})
		}
	}

	return long, nil
}
