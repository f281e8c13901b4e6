package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mercado-total/cvmsync/internal/cvm"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent ETL runs",
	Long:  "Displays the most recent runs per dataset from the etl_runs table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		limit, _ := cmd.Flags().GetInt("limit")

		runLog := cvm.NewRunLog(pool)
		entries, err := runLog.ListRecent(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if len(entries) == 0 {
			zap.L().Info("no runs recorded, run 'cvmsync sync' to load datasets")
			return nil
		}

		formatRunEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatRunEntries writes a tabular representation of run entries to w.
func formatRunEntries(out io.Writer, entries []cvm.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tYEAR\tSTATUS\tSTARTED\tDURATION\tWRITTEN\tFAILED\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t----\t------\t-------\t--------\t-------\t------\t-----")

	for _, e := range entries {
		year := "-"
		if e.Year != nil {
			year = fmt.Sprintf("%d", *e.Year)
		}

		dur := "-"
		if e.FinishedAt != nil {
			dur = e.FinishedAt.Sub(e.StartedAt).Round(time.Second).String()
		}

		errMsg := e.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:40] + "…"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			e.Dataset,
			year,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsWritten,
			e.RowsFailed,
			errMsg,
		)
	}
	_ = w.Flush()
}
