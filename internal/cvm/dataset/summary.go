package dataset

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DatasetSummary aggregates the outcome of every year of one dataset.
type DatasetSummary struct {
	Dataset       string           `yaml:"dataset"`
	RowsRead      int64            `yaml:"rows_read"`
	RowsWritten   int64            `yaml:"rows_written"`
	RowsFailed    int64            `yaml:"rows_failed"`
	BatchesFailed int              `yaml:"batches_failed"`
	Rejected      map[string]int64 `yaml:"rejected,omitempty"`
	SkippedYears  []int            `yaml:"skipped_years,omitempty"`
	FailedYears   []int            `yaml:"failed_years,omitempty"`
	LastError     string           `yaml:"last_error,omitempty"`
}

// Merge folds one year's result into the dataset tally.
func (d *DatasetSummary) Merge(r *Result) {
	if r == nil {
		return
	}
	d.RowsRead += r.RowsRead
	d.RowsWritten += r.RowsWritten
	d.RowsFailed += r.RowsFailed
	d.BatchesFailed += r.Batches
	for reason, n := range r.Rejected {
		if d.Rejected == nil {
			d.Rejected = make(map[string]int64)
		}
		d.Rejected[reason] += n
	}
}

// SkipYear records a year whose archive was not published.
func (d *DatasetSummary) SkipYear(year int) {
	d.SkippedYears = append(d.SkippedYears, year)
}

// FailYear records a year that failed with a transient error.
func (d *DatasetSummary) FailYear(year int, err error) {
	d.FailedYears = append(d.FailedYears, year)
	if err != nil {
		msg := err.Error()
		if len(msg) > 200 {
			msg = msg[:200]
		}
		d.LastError = msg
	}
}

// Summary is the run-level report across all datasets.
type Summary struct {
	StartedAt  time.Time         `yaml:"started_at"`
	FinishedAt time.Time         `yaml:"finished_at"`
	Datasets   []*DatasetSummary `yaml:"datasets"`
}

// NewSummary starts an empty run summary.
func NewSummary() *Summary {
	return &Summary{StartedAt: time.Now().UTC()}
}

// Dataset returns the tally for a dataset, creating it on first use.
func (s *Summary) Dataset(name string) *DatasetSummary {
	for _, d := range s.Datasets {
		if d.Dataset == name {
			return d
		}
	}
	d := &DatasetSummary{Dataset: name}
	s.Datasets = append(s.Datasets, d)
	return d
}

// Finish stamps the completion time.
func (s *Summary) Finish() {
	s.FinishedAt = time.Now().UTC()
}

// Log emits one line per dataset.
func (s *Summary) Log(log *zap.Logger) {
	for _, d := range s.Datasets {
		log.Info("dataset summary",
			zap.String("dataset", d.Dataset),
			zap.Int64("rows_read", d.RowsRead),
			zap.Int64("rows_written", d.RowsWritten),
			zap.Int64("rows_failed", d.RowsFailed),
			zap.Int("batches_failed", d.BatchesFailed),
			zap.Any("rejected", d.Rejected),
			zap.Ints("skipped_years", d.SkippedYears),
			zap.Ints("failed_years", d.FailedYears),
		)
	}
}

// WriteFile marshals the summary to a YAML report file.
func (s *Summary) WriteFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "summary: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "summary: write report %s", path)
	}
	return nil
}
