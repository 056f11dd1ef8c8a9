package load

import (
	"context"
	"testing"
	"time"

	"github.com/mvarga/habitmail/internal/parse"
	"github.com/mvarga/habitmail/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)
}

func TestLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	location, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	loader := NewLoader(pool, location)
	loader.now = fixedClock

	t.Run("appends rows with provenance columns", func(t *testing.T) {
		table := &parse.Table{
			Columns: []string{"date", "exercise"},
			Rows: [][]string{
				{"2024-01-01", "Squat"},
				{"2024-01-01", "Bench Press"},
				{"2024-01-02", "Deadlift"},
			},
		}

		err := loader.Load(ctx, table, FitNotesTable, "FitNotes_Export_2024-01-01.csv")
		require.NoError(t, err)

		rows, err := pool.Query(ctx, `SELECT date, exercise, csv_filename, upload_dttm FROM fitnotes_workouts ORDER BY id`)
		require.NoError(t, err)
		defer rows.Close()

		// 18:30 UTC on a June day is 14:30 in New York.
		const wantStamp = "2024-06-01 14:30:00"

		count := 0
		for rows.Next() {
			var date, exercise, filename, stamp string
			require.NoError(t, rows.Scan(&date, &exercise, &filename, &stamp))
			assert.Equal(t, "FitNotes_Export_2024-01-01.csv", filename)
			assert.Equal(t, wantStamp, stamp, "all rows of one batch share one timestamp")
			count++
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, 3, count)
	})

	t.Run("second load appends to the existing table", func(t *testing.T) {
		table := &parse.Table{
			Columns: []string{"date", "exercise"},
			Rows:    [][]string{{"2024-01-03", "Row"}},
		}

		err := loader.Load(ctx, table, FitNotesTable, "FitNotes_Export_2024-01-03.csv")
		require.NoError(t, err)

		var count int
		err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM fitnotes_workouts`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 4, count, "create-if-absent must not disturb existing data")
	})

	t.Run("renames colliding id column to csv_id", func(t *testing.T) {
		table := &parse.Table{
			Columns: []string{"id", "date"},
			Rows: [][]string{
				{"source-7", "2024-02-01"},
				{"source-8", "2024-02-02"},
			},
		}

		err := loader.Load(ctx, table, "collision_test", "export.csv")
		require.NoError(t, err)

		rows, err := pool.Query(ctx, `SELECT csv_id FROM collision_test ORDER BY id`)
		require.NoError(t, err)
		defer rows.Close()

		var ids []string
		for rows.Next() {
			var id string
			require.NoError(t, rows.Scan(&id))
			ids = append(ids, id)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"source-7", "source-8"}, ids)
	})

	t.Run("long-format habits land in their own table", func(t *testing.T) {
		table := &parse.Table{
			Columns: []string{"date", "habit", "value"},
			Rows: [][]string{
				{"2024-01-01", "meditate", "1"},
				{"2024-01-01", "read", ""},
			},
		}

		err := loader.Load(ctx, table, LoopHabitsTable, "Loop Habits CSV 2024.zip")
		require.NoError(t, err)

		var empty string
		err = pool.QueryRow(ctx, `SELECT value FROM loop_habits WHERE habit = 'read'`).Scan(&empty)
		require.NoError(t, err)
		assert.Equal(t, "", empty, "empty cells are loaded as empty values")
	})

	t.Run("empty table is a no-op", func(t *testing.T) {
		table := &parse.Table{Columns: []string{"date"}}

		err := loader.Load(ctx, table, "never_created", "empty.csv")
		require.NoError(t, err)

		var exists bool
		err = pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = 'never_created'
			)
		`).Scan(&exists)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
