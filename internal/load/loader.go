// Package load appends canonical record tables to the destination
// store, stamping provenance metadata on every row.
package load

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mvarga/habitmail/internal/parse"
	"github.com/mvarga/habitmail/internal/store"
)

// Destination table names, one per export format.
const (
	FitNotesTable   = "fitnotes_workouts"
	LoopHabitsTable = "loop_habits"
)

// rowIDColumn is the auto-assigned primary key on every destination
// table. Incoming record fields with this name are renamed to csvIDColumn
// before load so their data survives.
const (
	rowIDColumn = "id"
	csvIDColumn = "csv_id"
)

// Provenance columns appended to every row at load time.
const (
	sourceFilenameColumn = "csv_filename"
	loadTimestampColumn  = "upload_dttm"
)

// Loader writes record tables into Postgres. Destination columns are
// all TEXT: heterogeneous batches land without type-mismatch failures,
// and typing is left to a downstream stage.
type Loader struct {
	pool     *pgxpool.Pool
	location *time.Location
	now      func() time.Time
}

// NewLoader returns a Loader stamping load timestamps in the given
// timezone.
func NewLoader(pool *pgxpool.Pool, location *time.Location) *Loader {
	return &Loader{
		pool:     pool,
		location: location,
		now:      time.Now,
	}
}

// Load appends all rows of the table to tableName as one batch inside a
// transaction: either every row lands or none do. The destination table
// is created on first use; its column set is fixed by that first batch.
// The caller's table is modified in place (provenance columns, id rename).
func (l *Loader) Load(ctx context.Context, table *parse.Table, tableName, sourceFilename string) error {
	if table.NumRows() == 0 {
		return nil
	}

	table.RenameColumn(rowIDColumn, csvIDColumn)

	// One timestamp per load call, so every row of a batch carries the
	// identical value.
	loadedAt := l.now().In(l.location).Format("2006-01-02 15:04:05")
	table.AddColumn(sourceFilenameColumn, sourceFilename)
	table.AddColumn(loadTimestampColumn, loadedAt)

	if err := l.ensureTable(ctx, tableName, table.Columns); err != nil {
		return err
	}

	return l.appendRows(ctx, tableName, table)
}

// ensureTable creates the destination table if it does not exist, with
// an auto-assigned row identifier plus one TEXT column per field.
// Calling it again for an existing table is a no-op.
func (l *Loader) ensureTable(ctx context.Context, tableName string, columns []string) error {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, rowIDColumn+" BIGSERIAL PRIMARY KEY")
	for _, col := range columns {
		defs = append(defs, store.QuoteIdentifier(col)+" TEXT")
	}

	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		store.QuoteIdentifier(tableName),
		strings.Join(defs, ", "),
	)

	if _, err := l.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return nil
}

// appendRows inserts every row in one batch within a single transaction.
func (l *Loader) appendRows(ctx context.Context, tableName string, table *parse.Table) error {
	quoted := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		quoted[i] = store.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		store.QuoteIdentifier(tableName),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	batch := &pgx.Batch{}
	for _, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("row has %d values for %d columns", len(row), len(table.Columns))
		}
		args := make([]any, len(row))
		for i, value := range row {
			args[i] = value
		}
		batch.Queue(insert, args...)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for range table.Rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert into %s: %w", tableName, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit load into %s: %w", tableName, err)
	}

	return nil
}
