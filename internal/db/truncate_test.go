package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`TRUNCATE TABLE "financial_reports"`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`TRUNCATE TABLE "cvm_documents"`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	err = Truncate(context.Background(), mock, "financial_reports", "cvm_documents")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("TRUNCATE TABLE").WillReturnError(assert.AnError)

	err = Truncate(context.Background(), mock, "insider_transactions")
	require.Error(t, err)
}
