package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCell(t *testing.T) {
	empty := ""
	nan := "NaN"
	val := "x"

	assert.Nil(t, NormalizeCell(nil))
	assert.Nil(t, NormalizeCell(""))
	assert.Nil(t, NormalizeCell("NaN"))
	assert.Nil(t, NormalizeCell("NaT"))
	assert.Nil(t, NormalizeCell("N/A"))
	assert.Nil(t, NormalizeCell(&empty))
	assert.Nil(t, NormalizeCell(&nan))
	assert.Nil(t, NormalizeCell((*string)(nil)))

	assert.Equal(t, "abc", NormalizeCell("abc"))
	assert.Equal(t, 0, NormalizeCell(0))
	assert.Equal(t, 12.5, NormalizeCell(12.5))
	assert.Equal(t, &val, NormalizeCell(&val))
}

func expectUpsert(mock pgxmock.PgxPoolIface, table string, cols []string, n int64) {
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_" + table}, cols).WillReturnResult(n)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", n))
	mock.ExpectCommit()
}

func TestBatchWriter_FlushOnFull(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"tax_id", "legal_name"}
	expectUpsert(mock, "companies", cols, 2)

	w := NewBatchWriter(mock, UpsertConfig{
		Table:        "companies",
		Columns:      cols,
		ConflictKeys: []string{"tax_id"},
	}, 2)

	ctx := context.Background()
	require.NoError(t, w.Add(ctx, []any{"19131243000197", "A"}))
	assert.Equal(t, 1, w.Buffered())
	require.NoError(t, w.Add(ctx, []any{"33000167000101", "B"}))
	assert.Equal(t, 0, w.Buffered())

	assert.Equal(t, int64(2), w.Stats().RowsWritten)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchWriter_NormalizesMissingMarkers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"tax_id", "legal_name", "trading_name"}
	expectUpsert(mock, "companies", cols, 1)

	w := NewBatchWriter(mock, UpsertConfig{
		Table:        "companies",
		Columns:      cols,
		ConflictKeys: []string{"tax_id"},
	}, 10)

	ctx := context.Background()
	row := []any{"19131243000197", "A", "NaN"}
	require.NoError(t, w.Add(ctx, row))
	require.NoError(t, w.Flush(ctx))

	// The buffered row was normalized in place before COPY.
	assert.Nil(t, row[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchWriter_FlushFailureIsTolerated(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"tax_id", "legal_name"}

	// First flush fails at COPY; second succeeds.
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_companies"}, cols).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()
	expectUpsert(mock, "companies", cols, 1)

	w := NewBatchWriter(mock, UpsertConfig{
		Table:        "companies",
		Columns:      cols,
		ConflictKeys: []string{"tax_id"},
	}, 10)

	ctx := context.Background()
	require.NoError(t, w.Add(ctx, []any{"19131243000197", "A"}))
	require.NoError(t, w.Flush(ctx)) // failure recorded, not returned

	stats := w.Stats()
	assert.Equal(t, 1, stats.BatchesFailed)
	assert.Equal(t, int64(1), stats.RowsFailed)
	assert.NotEmpty(t, stats.LastError)
	assert.Equal(t, 0, w.Buffered())

	// Writer keeps working after the failed batch.
	require.NoError(t, w.Add(ctx, []any{"33000167000101", "B"}))
	require.NoError(t, w.Flush(ctx))
	assert.Equal(t, int64(1), w.Stats().RowsWritten)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchWriter_DedupesOnConflictKeys(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"tax_id", "legal_name"}
	expectUpsert(mock, "companies", cols, 2)

	w := NewBatchWriter(mock, UpsertConfig{
		Table:        "companies",
		Columns:      cols,
		ConflictKeys: []string{"tax_id"},
	}, 10)

	// The same company appears twice; only its last row may reach COPY or
	// the INSERT ON CONFLICT statement would touch the row twice.
	ctx := context.Background()
	require.NoError(t, w.Add(ctx, []any{"19131243000197", "OLD NAME"}))
	require.NoError(t, w.Add(ctx, []any{"33000167000101", "B"}))
	require.NoError(t, w.Add(ctx, []any{"19131243000197", "NEW NAME"}))
	require.NoError(t, w.Flush(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupeByConflictKeys(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "tickers",
		Columns:      []string{"symbol", "company_tax_id"},
		ConflictKeys: []string{"symbol"},
	}

	rows := [][]any{
		{"PETR4", "a"},
		{"VALE3", "b"},
		{"PETR4", "c"},
	}
	out := dedupeByConflictKeys(cfg, rows)
	require.Len(t, out, 2)
	assert.Equal(t, []any{"VALE3", "b"}, out[0])
	assert.Equal(t, []any{"PETR4", "c"}, out[1])

	// No duplicates: rows pass through unchanged.
	rows = [][]any{{"PETR4", "a"}, {"VALE3", "b"}}
	assert.Equal(t, rows, dedupeByConflictKeys(cfg, rows))

	// Unresolvable key column: rows pass through unchanged.
	bad := UpsertConfig{
		Table:        "tickers",
		Columns:      []string{"symbol"},
		ConflictKeys: []string{"missing"},
	}
	rows = [][]any{{"PETR4"}, {"PETR4"}}
	assert.Equal(t, rows, dedupeByConflictKeys(bad, rows))
}

func TestBatchWriter_EmptyFlushIsNoop(t *testing.T) {
	w := NewBatchWriter(nil, UpsertConfig{
		Table:        "companies",
		Columns:      []string{"tax_id"},
		ConflictKeys: []string{"tax_id"},
	}, 10)
	assert.NoError(t, w.Flush(context.Background()))
}

func TestTruncateError(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	msg := truncateError(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), msg)

	err := &stringError{s: string(long)}
	assert.Len(t, truncateError(err), 200)
}

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }
