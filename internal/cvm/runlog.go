package cvm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/mercado-total/cvmsync/internal/db"
)

// RunEntry represents a row in etl_runs.
type RunEntry struct {
	RunID       uuid.UUID  `json:"run_id"`
	Dataset     string     `json:"dataset"`
	Year        *int       `json:"year,omitempty"`
	Status      string     `json:"status"`
	RowsWritten int64      `json:"rows_written"`
	RowsFailed  int64      `json:"rows_failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// RunResult holds the outcome of a dataset load, passed to Complete().
type RunResult struct {
	RowsWritten int64 `json:"rows_written"`
	RowsFailed  int64 `json:"rows_failed"`
}

// RunLog provides read/write access to the etl_runs table.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a new RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a dataset load and returns its run ID.
// Year is optional; registry-wide loads pass nil.
func (l *RunLog) Start(ctx context.Context, dataset string, year *int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO etl_runs (run_id, dataset, year, status, started_at)
		 VALUES ($1, $2, $3, 'running', now())`,
		id, dataset, year,
	)
	if err != nil {
		return uuid.Nil, eris.Wrapf(err, "runlog: start %s", dataset)
	}
	return id, nil
}

// Complete marks a run as finished. A run that wrote rows but lost some
// batches still counts as complete; rows_failed carries the tally.
func (l *RunLog) Complete(ctx context.Context, runID uuid.UUID, result *RunResult) error {
	var written, failed int64
	if result != nil {
		written = result.RowsWritten
		failed = result.RowsFailed
	}
	_, err := l.pool.Exec(ctx,
		`UPDATE etl_runs
		 SET status = 'complete', finished_at = now(), rows_written = $1, rows_failed = $2
		 WHERE run_id = $3`,
		written, failed, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return nil
}

// Skip marks a run as skipped, used when a year's archive is not published.
func (l *RunLog) Skip(ctx context.Context, runID uuid.UUID) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE etl_runs
		 SET status = 'skipped', finished_at = now()
		 WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: skip run %s", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message. Messages longer than
// the column width are truncated to their first 200 characters.
func (l *RunLog) Fail(ctx context.Context, runID uuid.UUID, errMsg string) error {
	if len(errMsg) > 200 {
		errMsg = errMsg[:200]
	}
	_, err := l.pool.Exec(ctx,
		`UPDATE etl_runs
		 SET status = 'failed', finished_at = now(), error = $1
		 WHERE run_id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return nil
}

// LastSuccess returns the started_at time of the most recent completed run
// for a dataset, or nil if it has never completed.
func (l *RunLog) LastSuccess(ctx context.Context, dataset string) (*time.Time, error) {
	var t time.Time
	err := l.pool.QueryRow(ctx,
		`SELECT started_at FROM etl_runs
		 WHERE dataset = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		dataset,
	).Scan(&t)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "runlog: last success for %s", dataset)
	}
	return &t, nil
}

// ListRecent returns the most recent run entries ordered newest first.
func (l *RunLog) ListRecent(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx,
		`SELECT run_id, dataset, year, status, rows_written, rows_failed, error, started_at, finished_at
		 FROM etl_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list recent")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var errStr *string
		if err := rows.Scan(&e.RunID, &e.Dataset, &e.Year, &e.Status, &e.RowsWritten, &e.RowsFailed, &errStr, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
