package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/mercado-total/cvmsync/internal/db"
	"github.com/mercado-total/cvmsync/internal/fetcher"
)

// TaxIDSet is the set of 14-digit company tax IDs known to the registry.
// Dependent loaders drop rows whose tax ID is not in the set.
type TaxIDSet map[string]struct{}

// Has reports whether the tax ID is present.
func (s TaxIDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts a tax ID.
func (s TaxIDSet) Add(id string) {
	s[id] = struct{}{}
}

// Env carries the shared dependencies a dataset load needs.
type Env struct {
	Pool      db.Pool
	Fetcher   fetcher.Fetcher
	BaseURL   string
	BatchSize int
	ChunkSize int

	// Known is the company registry snapshot. Populated by the engine after
	// the registry dataset runs; nil only for the registry dataset itself.
	Known TaxIDSet
}

// ArchiveURL builds the download URL for a dataset tag and year, e.g.
// {base}/DFP/DADOS/dfp_cia_aberta_2024.zip.
func (e *Env) ArchiveURL(tag string, year int) string {
	return fmt.Sprintf("%s/%s/DADOS/%s_cia_aberta_%d.zip", e.BaseURL, tag, strings.ToLower(tag), year)
}

// Result tallies the outcome of one dataset-year load.
type Result struct {
	RowsRead    int64
	RowsWritten int64
	RowsFailed  int64
	Batches     int
	Rejected    map[string]int64
}

// NewResult returns an empty tally.
func NewResult() *Result {
	return &Result{Rejected: make(map[string]int64)}
}

// Reject counts one dropped row under the given reason.
func (r *Result) Reject(reason string) {
	r.RowsRead++
	r.Rejected[reason]++
}

// RejectN counts n dropped rows under the given reason.
func (r *Result) RejectN(reason string, n int64) {
	if n <= 0 {
		return
	}
	r.RowsRead += n
	r.Rejected[reason] += n
}

// Accept counts one row that passed mapping.
func (r *Result) Accept() {
	r.RowsRead++
}

// Merge folds another tally into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.RowsRead += other.RowsRead
	r.RowsWritten += other.RowsWritten
	r.RowsFailed += other.RowsFailed
	r.Batches += other.Batches
	for reason, n := range other.Rejected {
		r.Rejected[reason] += n
	}
}

// Rejection reasons shared across datasets.
const (
	ReasonBadTaxID       = "bad_tax_id"
	ReasonUnknownCompany = "unknown_company"
	ReasonMissingKey     = "missing_key"
	ReasonParseDate      = "parse_date"
	ReasonParseDecimal   = "parse_decimal"
	ReasonBadTicker      = "bad_ticker"
	ReasonFiltered       = "filtered"
	ReasonParseRow       = "parse_row"
)

// Dataset is one loadable CVM open-data series.
type Dataset interface {
	// Name returns the unique identifier, e.g. "fca", "dfp".
	Name() string

	// Table returns the primary target table.
	Table() string

	// RequiresRegistry reports whether the load depends on a populated
	// company registry.
	RequiresRegistry() bool

	// Yearly reports whether the dataset is loaded once per year of the
	// requested range. Non-yearly datasets run once per invocation.
	Yearly() bool

	// Sync downloads and loads one year of the dataset. A missing archive
	// surfaces as fetcher.ErrNotFound so the engine can skip the year.
	Sync(ctx context.Context, env *Env, year int) (*Result, error)
}
