package db

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultBatchSize is the bounded buffer size of a BatchWriter.
const DefaultBatchSize = 50000

// missing markers the sources use for absent values. The writer never
// submits one of these to the database; they become SQL NULL.
var missingMarkers = map[string]bool{
	"":    true,
	"NaN": true,
	"nan": true,
	"NaT": true,
	"N/A": true,
}

// NormalizeCell maps source missing markers to nil. Non-string cells and
// real values pass through unchanged.
func NormalizeCell(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && missingMarkers[s] {
		return nil
	}
	if p, ok := v.(*string); ok {
		if p == nil || missingMarkers[*p] {
			return nil
		}
	}
	return v
}

// WriterStats tallies the outcome of one writer's lifetime.
type WriterStats struct {
	RowsWritten   int64
	RowsFailed    int64
	BatchesFailed int
	LastError     string
}

// BatchWriter buffers rows for one table and flushes them in bounded batches
// through BulkUpsert. A failed flush is logged, tallied and abandoned; the
// writer keeps accepting rows. The run never aborts on a batch failure.
type BatchWriter struct {
	pool      Pool
	cfg       UpsertConfig
	batchSize int
	buf       [][]any
	stats     WriterStats
}

// NewBatchWriter creates a writer for the given table descriptor.
func NewBatchWriter(pool Pool, cfg UpsertConfig, batchSize int) *BatchWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchWriter{
		pool:      pool,
		cfg:       cfg,
		batchSize: batchSize,
		buf:       make([][]any, 0, batchSize),
	}
}

// Add buffers one row, flushing when the buffer is full.
func (w *BatchWriter) Add(ctx context.Context, row []any) error {
	w.buf = append(w.buf, row)
	if len(w.buf) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered rows in a single transaction. Every cell is
// normalized so no source missing marker reaches the database. A database
// rejection clears the buffer and is recorded, not returned; only context
// cancellation propagates.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}

	rows := w.buf
	w.buf = make([][]any, 0, w.batchSize)

	for _, row := range rows {
		for i, cell := range row {
			row[i] = NormalizeCell(cell)
		}
	}

	// ON CONFLICT DO UPDATE cannot touch the same row twice in one statement,
	// so duplicate identities within a batch must collapse before the flush.
	// The last occurrence wins, matching the row order of the source entry.
	rows = dedupeByConflictKeys(w.cfg, rows)

	n, err := BulkUpsert(ctx, w.pool, w.cfg, rows)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		w.stats.BatchesFailed++
		w.stats.RowsFailed += int64(len(rows))
		w.stats.LastError = truncateError(err)
		zap.L().Error("batch flush failed, abandoning batch",
			zap.String("table", w.cfg.Table),
			zap.Int("rows", len(rows)),
			zap.String("error", w.stats.LastError),
		)
		return nil
	}

	w.stats.RowsWritten += n
	return nil
}

// Stats returns the writer's tallies. Call after the final Flush.
func (w *BatchWriter) Stats() WriterStats {
	return w.stats
}

// Buffered returns the number of rows currently held in the buffer.
func (w *BatchWriter) Buffered() int {
	return len(w.buf)
}

// dedupeByConflictKeys collapses rows that share the same conflict-key values,
// keeping the last occurrence in buffer order. Rows whose key columns cannot
// be located pass through untouched.
func dedupeByConflictKeys(cfg UpsertConfig, rows [][]any) [][]any {
	if len(rows) < 2 || len(cfg.ConflictKeys) == 0 {
		return rows
	}

	keyIdx := make([]int, 0, len(cfg.ConflictKeys))
	for _, key := range cfg.ConflictKeys {
		found := -1
		for i, col := range cfg.Columns {
			if col == key {
				found = i
				break
			}
		}
		if found < 0 {
			return rows
		}
		keyIdx = append(keyIdx, found)
	}

	last := make(map[string]int, len(rows))
	var sb strings.Builder
	for i, row := range rows {
		sb.Reset()
		for _, idx := range keyIdx {
			if idx < len(row) {
				fmt.Fprintf(&sb, "%v\x1f", row[idx])
			}
		}
		last[sb.String()] = i
	}

	if len(last) == len(rows) {
		return rows
	}

	keep := make(map[int]bool, len(last))
	for _, i := range last {
		keep[i] = true
	}
	out := rows[:0]
	for i, row := range rows {
		if keep[i] {
			out = append(out, row)
		}
	}
	return out
}

// truncateError keeps the first 200 characters of an error string, enough to
// identify the failing constraint without flooding the log.
func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		return msg[:200]
	}
	return msg
}
