package dataset

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mercado-total/cvmsync/internal/db"
	"github.com/mercado-total/cvmsync/internal/fetcher"
	"github.com/mercado-total/cvmsync/internal/model"
)

// statementsLoader holds the shared load path for the DFP and ITR archives.
// Each archive carries one consolidated CSV per statement type; every row
// maps to a financial report (upserted first) and one statement line.
type statementsLoader struct {
	tag    string
	period model.ReportPeriod
	kind   model.ReportKind
}

// pendingLine is a statement line waiting for its report ID.
type pendingLine struct {
	key   model.ReportKey
	stype model.StatementType
	code  string
	desc  *string
	value *float64
	scale model.CurrencyScale
	order model.FiscalYearOrder
}

func (d *statementsLoader) sync(ctx context.Context, env *Env, year int) (*Result, error) {
	log := zap.L().With(zap.String("dataset", strings.ToLower(d.tag)), zap.Int("year", year))

	data, err := env.Fetcher.DownloadArchive(ctx, env.ArchiveURL(d.tag, year))
	if err != nil {
		return nil, err
	}

	arc, err := fetcher.OpenArchive(data)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: open archive year %d", strings.ToLower(d.tag), year)
	}

	lines := db.NewBatchWriter(env.Pool, db.UpsertConfig{
		Table: "financial_statements",
		Columns: []string{
			"report_id", "statement_type", "account_code",
			"account_description", "account_value", "currency_scale", "fiscal_year_order",
		},
		ConflictKeys: []string{"report_id", "statement_type", "account_code"},
		UpdateExprs:  []string{"updated_at = now()"},
	}, env.BatchSize)

	res := NewResult()

	for _, entry := range arc.Entries(".csv") {
		stype, ok := statementTypeFromEntry(entry.Name())
		if !ok {
			continue
		}
		if err := d.loadEntry(ctx, env, entry, stype, year, lines, res); err != nil {
			return nil, err
		}
		log.Info("entry loaded",
			zap.String("entry", entry.Name()),
			zap.Int64("rows_read", res.RowsRead),
		)
	}

	if err := lines.Flush(ctx); err != nil {
		return nil, err
	}

	stats := lines.Stats()
	res.RowsWritten = stats.RowsWritten
	res.RowsFailed = stats.RowsFailed
	res.Batches = stats.BatchesFailed
	return res, nil
}

func (d *statementsLoader) loadEntry(
	ctx context.Context,
	env *Env,
	entry fetcher.Entry,
	stype model.StatementType,
	year int,
	lines *db.BatchWriter,
	res *Result,
) error {
	text, err := entry.Text(fetcher.EncodingLatin1)
	if err != nil {
		return eris.Wrapf(err, "%s: decode entry %s", strings.ToLower(d.tag), entry.Name())
	}
	defer text.Close()

	var delivered int
	read, err := fetcher.ReadChunks(ctx, text, fetcher.CSVOptions{ChunkSize: env.ChunkSize}, func(chunk fetcher.Chunk) error {
		delivered += len(chunk.Rows)
		colIdx := mapColumns(chunk.Header)

		reports := make(map[model.ReportKey]model.FinancialReport)
		var pending []pendingLine

		for _, record := range chunk.Rows {
			taxID, ok := cleanTaxID(getCol(record, colIdx, "CNPJ_CIA"))
			if !ok {
				res.Reject(ReasonBadTaxID)
				continue
			}
			if !env.Known.Has(taxID) {
				res.Reject(ReasonUnknownCompany)
				continue
			}

			code := strings.TrimSpace(getCol(record, colIdx, "CD_CONTA"))
			if isMissing(code) {
				res.Reject(ReasonMissingKey)
				continue
			}

			// The prior-exercise column duplicates the previous year's own
			// report; only the current exercise is kept.
			order := fiscalYearOrderFrom(getCol(record, colIdx, "ORDEM_EXERC"))
			if order == model.OrderPrior {
				res.Reject(ReasonFiltered)
				continue
			}

			// An absent value becomes NULL; a present but unparseable one
			// rejects the row.
			rawValue := getCol(record, colIdx, "VL_CONTA")
			value := parseDecimalComma(rawValue)
			if value == nil && !isMissing(rawValue) {
				res.Reject(ReasonParseDecimal)
				continue
			}

			key := model.ReportKey{
				CompanyTaxID: taxID,
				Year:         year,
				Period:       d.period,
				Kind:         d.kind,
			}

			version := parseIntOr(getCol(record, colIdx, "VERSAO"), 1)
			if rep, seen := reports[key]; !seen || version > rep.Version {
				reports[key] = model.FinancialReport{
					CompanyTaxID:  taxID,
					Year:          year,
					Period:        d.period,
					Kind:          d.kind,
					ReferenceDate: parseDateISO(getCol(record, colIdx, "DT_REFER")),
					Version:       version,
				}
			}

			pending = append(pending, pendingLine{
				key:   key,
				stype: stype,
				code:  code,
				desc:  normalizeStr(getCol(record, colIdx, "DS_CONTA")),
				value: value,
				scale: currencyScaleFrom(getCol(record, colIdx, "ESCALA_MOEDA")),
				order: order,
			})
			res.Accept()
		}

		if len(pending) == 0 {
			return nil
		}

		ids, err := d.materializeReports(ctx, env, reports)
		if err != nil {
			return err
		}

		for _, p := range pending {
			id, ok := ids[p.key]
			if !ok {
				// The report batch failed; its lines cannot be written.
				res.Reject(ReasonMissingKey)
				res.RowsRead--
				continue
			}
			row := []any{id, string(p.stype), p.code, p.desc, p.value, string(p.scale), string(p.order)}
			if err := lines.Add(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "%s: read entry %s", strings.ToLower(d.tag), entry.Name())
	}
	res.RejectN(ReasonParseRow, int64(read-delivered))
	return nil
}

// materializeReports upserts the chunk's reports and returns their IDs keyed
// by identity tuple. On version conflict the highest version wins and the
// reference date follows the winning version.
func (d *statementsLoader) materializeReports(ctx context.Context, env *Env, reports map[model.ReportKey]model.FinancialReport) (map[model.ReportKey]int64, error) {
	if len(reports) == 0 {
		return nil, nil
	}

	rows := make([][]any, 0, len(reports))
	for _, rep := range reports {
		rows = append(rows, []any{
			rep.CompanyTaxID, rep.Year, string(rep.Period), string(rep.Kind),
			rep.ReferenceDate, rep.Version,
		})
	}

	returned, err := db.BulkUpsertReturning(ctx, env.Pool, db.UpsertConfig{
		Table:        "financial_reports",
		Columns:      []string{"company_tax_id", "year", "period", "report_kind", "reference_date", "version"},
		ConflictKeys: []string{"company_tax_id", "year", "period", "report_kind"},
		UpdateCols:   []string{},
		UpdateExprs: []string{
			"reference_date = CASE WHEN EXCLUDED.version >= financial_reports.version THEN EXCLUDED.reference_date ELSE financial_reports.reference_date END",
			"version = GREATEST(financial_reports.version, EXCLUDED.version)",
			"updated_at = now()",
		},
	}, rows, []string{"id", "company_tax_id", "year", "period", "report_kind"})
	if err != nil {
		return nil, eris.Wrapf(err, "%s: upsert reports", strings.ToLower(d.tag))
	}

	ids := make(map[model.ReportKey]int64, len(returned))
	for _, row := range returned {
		if len(row) != 5 {
			continue
		}
		key := model.ReportKey{
			CompanyTaxID: asString(row[1]),
			Year:         asInt(row[2]),
			Period:       model.ReportPeriod(asString(row[3])),
			Kind:         model.ReportKind(asString(row[4])),
		}
		ids[key] = asInt64(row[0])
	}
	return ids, nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	}
	return 0
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}
