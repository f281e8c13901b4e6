package dataset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mercado-total/cvmsync/internal/cvm"
	"github.com/mercado-total/cvmsync/internal/db"
	"github.com/mercado-total/cvmsync/internal/fetcher"
)

// Engine orchestrates dataset loads across the requested year range.
type Engine struct {
	env    *Env
	runLog *cvm.RunLog
	reg    *Registry
}

// RunOpts configures which datasets and years to load.
type RunOpts struct {
	Datasets  []string // restrict to specific dataset names; empty = all
	StartYear int
	EndYear   int
	Truncate  bool // truncate target tables before loading
}

// NewEngine creates an engine over the shared environment.
func NewEngine(env *Env, runLog *cvm.RunLog, reg *Registry) *Engine {
	return &Engine{env: env, runLog: runLog, reg: reg}
}

// truncateTables lists the tables a full reload of the dataset clears.
// The registry tables are exempt: companies and tickers are never deleted,
// only upserted over. Parent tables cascade to their dependents.
func truncateTables(ds Dataset) []string {
	switch ds.Name() {
	case "fca":
		return nil
	case "dfp", "itr":
		return []string{"financial_reports", "financial_statements"}
	default:
		return []string{ds.Table()}
	}
}

// Run loads the selected datasets in registration order, the company
// registry always first. Per-year transient failures are logged and recorded
// but do not abort the run; only setup errors and cancellation do.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Summary, error) {
	log := zap.L().With(zap.String("component", "cvm.engine"))

	datasets, err := e.reg.Select(opts.Datasets)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return NewSummary(), nil
	}

	if opts.Truncate {
		seen := make(map[string]bool)
		var tables []string
		for _, ds := range datasets {
			for _, table := range truncateTables(ds) {
				if !seen[table] {
					seen[table] = true
					tables = append(tables, table)
				}
			}
		}
		log.Info("truncating target tables", zap.Strings("tables", tables))
		if err := db.Truncate(ctx, e.env.Pool, tables...); err != nil {
			return nil, err
		}
	}

	summary := NewSummary()

	for _, ds := range datasets {
		if ds.RequiresRegistry() && e.env.Known == nil {
			known, err := e.loadKnownTaxIDs(ctx)
			if err != nil {
				return nil, err
			}
			if len(known) == 0 {
				return nil, eris.Errorf(
					"engine: company registry is empty; load the %q dataset before %q",
					"fca", ds.Name(),
				)
			}
			e.env.Known = known
		}

		if err := e.runDataset(ctx, ds, opts, summary); err != nil {
			return nil, err
		}

		// A fresh registry invalidates any earlier snapshot.
		if !ds.RequiresRegistry() {
			e.env.Known = nil
		}
	}

	summary.Finish()
	summary.Log(log)
	return summary, nil
}

func (e *Engine) runDataset(ctx context.Context, ds Dataset, opts RunOpts, summary *Summary) error {
	log := zap.L().With(zap.String("component", "cvm.engine"), zap.String("dataset", ds.Name()))

	years := []int{opts.EndYear}
	if ds.Yearly() {
		years = years[:0]
		for y := opts.StartYear; y <= opts.EndYear; y++ {
			years = append(years, y)
		}
	}

	total := summary.Dataset(ds.Name())

	for _, year := range years {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		yr := year
		runID, err := e.runLog.Start(ctx, ds.Name(), &yr)
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := ds.Sync(ctx, e.env, year)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			if logErr := e.runLog.Complete(ctx, runID, &cvm.RunResult{
				RowsWritten: result.RowsWritten,
				RowsFailed:  result.RowsFailed,
			}); logErr != nil {
				log.Error("failed to record run completion", zap.Error(logErr))
			}
			total.Merge(result)
			log.Info("year loaded",
				zap.Int("year", year),
				zap.Int64("rows_written", result.RowsWritten),
				zap.Duration("elapsed", elapsed),
			)

		case eris.Is(err, fetcher.ErrNotFound):
			if logErr := e.runLog.Skip(ctx, runID); logErr != nil {
				log.Error("failed to record skipped run", zap.Error(logErr))
			}
			total.SkipYear(year)
			log.Info("archive not published, skipping year", zap.Int("year", year))

		case ctx.Err() != nil:
			// The run context is already cancelled; the status write gets a
			// detached context so the row does not stay in "running" forever.
			failCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if logErr := e.runLog.Fail(failCtx, runID, "cancelled"); logErr != nil {
				log.Error("failed to record cancelled run", zap.Error(logErr))
			}
			done()
			return ctx.Err()

		default:
			if logErr := e.runLog.Fail(ctx, runID, err.Error()); logErr != nil {
				log.Error("failed to record run failure", zap.Error(logErr))
			}
			total.FailYear(year, err)
			log.Error("year failed", zap.Int("year", year), zap.Error(err), zap.Duration("elapsed", elapsed))
		}
	}

	return nil
}

// loadKnownTaxIDs snapshots the company registry for dependent loaders.
func (e *Engine) loadKnownTaxIDs(ctx context.Context) (TaxIDSet, error) {
	rows, err := e.env.Pool.Query(ctx, "SELECT tax_id FROM companies")
	if err != nil {
		return nil, eris.Wrap(err, "engine: load known tax ids")
	}
	defer rows.Close()

	known := make(TaxIDSet)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "engine: scan tax id")
		}
		known.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "engine: read known tax ids")
	}
	return known, nil
}
