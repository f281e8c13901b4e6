package dataset

import (
	"context"

	"github.com/mercado-total/cvmsync/internal/model"
)

// DFP implements the annual financial statements dataset.
type DFP struct{}

func (d *DFP) Name() string           { return "dfp" }
func (d *DFP) Table() string          { return "financial_statements" }
func (d *DFP) RequiresRegistry() bool { return true }
func (d *DFP) Yearly() bool           { return true }

func (d *DFP) Sync(ctx context.Context, env *Env, year int) (*Result, error) {
	loader := &statementsLoader{
		tag:    "DFP",
		period: model.PeriodAnnual,
		kind:   model.KindAnnualForm,
	}
	return loader.sync(ctx, env, year)
}
