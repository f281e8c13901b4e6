package dataset

import (
	"context"

	"github.com/mercado-total/cvmsync/internal/model"
)

// ITR implements the quarterly financial statements dataset.
type ITR struct{}

func (d *ITR) Name() string           { return "itr" }
func (d *ITR) Table() string          { return "financial_statements" }
func (d *ITR) RequiresRegistry() bool { return true }
func (d *ITR) Yearly() bool           { return true }

func (d *ITR) Sync(ctx context.Context, env *Env, year int) (*Result, error) {
	loader := &statementsLoader{
		tag:    "ITR",
		period: model.PeriodQuarterly,
		kind:   model.KindInterimForm,
	}
	return loader.sync(ctx, env, year)
}
