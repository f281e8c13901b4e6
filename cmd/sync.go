package main

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mercado-total/cvmsync/internal/cvm"
	"github.com/mercado-total/cvmsync/internal/cvm/dataset"
	"github.com/mercado-total/cvmsync/internal/fetcher"
)

// defaultStartYear is the first year the open-data portal publishes the
// yearly document archives for.
const defaultStartYear = 2010

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load CVM datasets",
	Long: `Load CVM open-data datasets into Postgres.

By default all datasets are loaded for every year of the range. The company
registry always loads first; dependent datasets drop rows for companies the
registry does not know. Per-batch database failures and unpublished years are
tallied, not fatal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		// Ensure migrations are current.
		if err := cvm.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "sync: migrate")
		}

		opts, err := parseSyncOpts(cmd)
		if err != nil {
			return err
		}

		batchSize, _ := cmd.Flags().GetInt("batch-size")
		if batchSize <= 0 {
			batchSize = cfg.ETL.BatchSize
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    cfg.ETL.UserAgent,
			Timeout:      time.Duration(cfg.ETL.TimeoutSecs) * time.Second,
			MaxRetries:   cfg.ETL.MaxRetries,
			RateLimiters: fetcher.RateLimiters(cfg.ETL.RatePerSec),
		})

		env := &dataset.Env{
			Pool:      pool,
			Fetcher:   f,
			BaseURL:   cfg.ETL.BaseURL,
			BatchSize: batchSize,
			ChunkSize: cfg.ETL.ChunkSize,
		}
		engine := dataset.NewEngine(env, cvm.NewRunLog(pool), dataset.NewRegistry())

		log.Info("starting sync",
			zap.Strings("datasets", opts.Datasets),
			zap.Int("start_year", opts.StartYear),
			zap.Int("end_year", opts.EndYear),
			zap.Bool("truncate", opts.Truncate),
		)

		summary, err := engine.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		if reportFile, _ := cmd.Flags().GetString("report-file"); reportFile != "" {
			if err := summary.WriteFile(reportFile); err != nil {
				return err
			}
			log.Info("report written", zap.String("path", reportFile))
		}

		return nil
	},
}

func init() {
	syncCmd.Flags().String("datasets", "", "comma-separated dataset names (fca,dfp,itr,ipe,vlmo)")
	syncCmd.Flags().Int("start-year", defaultStartYear, "first year to load")
	syncCmd.Flags().Int("end-year", 0, "last year to load (default: current year)")
	syncCmd.Flags().Bool("truncate", false, "truncate target tables before loading")
	syncCmd.Flags().Int("batch-size", 0, "writer buffer size (default from config)")
	syncCmd.Flags().String("report-file", "", "write a YAML run summary to this path")
	rootCmd.AddCommand(syncCmd)
}

// parseSyncOpts extracts dataset.RunOpts from the cobra command flags.
func parseSyncOpts(cmd *cobra.Command) (dataset.RunOpts, error) {
	datasetsStr, _ := cmd.Flags().GetString("datasets")
	startYear, _ := cmd.Flags().GetInt("start-year")
	endYear, _ := cmd.Flags().GetInt("end-year")
	truncate, _ := cmd.Flags().GetBool("truncate")

	if endYear == 0 {
		endYear = time.Now().Year()
	}
	if startYear > endYear {
		return dataset.RunOpts{}, eris.Errorf("sync: start year %d after end year %d", startYear, endYear)
	}

	opts := dataset.RunOpts{
		StartYear: startYear,
		EndYear:   endYear,
		Truncate:  truncate,
	}

	if datasetsStr != "" {
		opts.Datasets = strings.Split(datasetsStr, ",")
		for i := range opts.Datasets {
			opts.Datasets[i] = strings.TrimSpace(opts.Datasets[i])
		}
	}

	return opts, nil
}
