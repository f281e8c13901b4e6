package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Truncate empties the given tables with RESTART IDENTITY CASCADE, one
// statement per table.
func Truncate(ctx context.Context, pool Pool, tables ...string) error {
	for _, table := range tables {
		sql := "TRUNCATE TABLE " + pgx.Identifier{table}.Sanitize() + " RESTART IDENTITY CASCADE"
		if _, err := pool.Exec(ctx, sql); err != nil {
			return eris.Wrapf(err, "db: truncate %s", table)
		}
		zap.L().Info("truncated table", zap.String("table", table))
	}
	return nil
}
