package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mercado-total/cvmsync/internal/db"
	"github.com/mercado-total/cvmsync/internal/fetcher"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const testBaseURL = "https://dados.cvm.gov.br/dados/CIA_ABERTA/DOC"

// buildZip builds an in-memory ZIP archive from entry name to content.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// stubFetcher serves archives from memory, keyed by full URL. URLs without
// an archive answer fetcher.ErrNotFound, like the portal's 404.
type stubFetcher struct {
	archives map[string][]byte
	calls    []string
}

func (f *stubFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	data, err := f.DownloadArchive(ctx, url)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *stubFetcher) DownloadArchive(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	data, ok := f.archives[url]
	if !ok {
		return nil, fetcher.ErrNotFound
	}
	return data, nil
}

func newTestEnv(pool db.Pool, f fetcher.Fetcher, known TaxIDSet) *Env {
	return &Env{
		Pool:      pool,
		Fetcher:   f,
		BaseURL:   testBaseURL,
		BatchSize: 100,
		ChunkSize: 100,
		Known:     known,
	}
}

// expectUpsert sets up pgxmock expectations for one BulkUpsert transaction:
// Begin, CREATE TEMP TABLE, COPY, INSERT ON CONFLICT, Commit.
func expectUpsert(mock pgxmock.PgxPoolIface, table string, cols []string, n int64) {
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_" + table}, cols).WillReturnResult(n)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", n))
	mock.ExpectCommit()
}

var companyCols = []string{"tax_id", "legal_name", "trading_name", "industry_classification", "cvm_code", "is_active"}

var tickerCols = []string{"symbol", "company_tax_id", "is_active"}

var reportCols = []string{"company_tax_id", "year", "period", "report_kind", "reference_date", "version"}

var statementCols = []string{
	"report_id", "statement_type", "account_code",
	"account_description", "account_value", "currency_scale", "fiscal_year_order",
}
