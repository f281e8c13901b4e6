package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mercado-total/cvmsync/internal/db"
	"github.com/mercado-total/cvmsync/internal/fetcher"
)

// VLMO implements the insider transactions dataset. The archive splits the
// movements into individual and consolidated files; only the consolidated
// entry is loaded.
type VLMO struct{}

func (d *VLMO) Name() string           { return "vlmo" }
func (d *VLMO) Table() string          { return "insider_transactions" }
func (d *VLMO) RequiresRegistry() bool { return true }
func (d *VLMO) Yearly() bool           { return true }

func (d *VLMO) Sync(ctx context.Context, env *Env, year int) (*Result, error) {
	log := zap.L().With(zap.String("dataset", "vlmo"), zap.Int("year", year))

	data, err := env.Fetcher.DownloadArchive(ctx, env.ArchiveURL("VLMO", year))
	if err != nil {
		return nil, err
	}

	arc, err := fetcher.OpenArchive(data)
	if err != nil {
		return nil, eris.Wrapf(err, "vlmo: open archive year %d", year)
	}

	entryName := fmt.Sprintf("vlmo_cia_aberta_con_%d.csv", year)
	entry, ok := arc.Entry(entryName)
	if !ok {
		return nil, eris.Errorf("vlmo: entry %s not found in archive", entryName)
	}

	text, err := entry.Text(fetcher.EncodingLatin1)
	if err != nil {
		return nil, eris.Wrapf(err, "vlmo: decode entry %s", entryName)
	}
	defer text.Close()

	writer := db.NewBatchWriter(env.Pool, db.UpsertConfig{
		Table: "insider_transactions",
		Columns: []string{
			"company_tax_id", "filing_protocol", "group_code", "security_code",
			"operation_type", "operation_raw", "transaction_date", "line_ordinal",
			"asset_type", "asset_type_raw", "quantity", "price", "volume",
		},
		ConflictKeys: []string{
			"filing_protocol", "group_code", "security_code",
			"operation_type", "transaction_date", "line_ordinal",
		},
		UpdateExprs: []string{"updated_at = now()"},
	}, env.BatchSize)

	res := NewResult()

	var delivered int
	read, err := fetcher.ReadChunks(ctx, text, fetcher.CSVOptions{ChunkSize: env.ChunkSize}, func(chunk fetcher.Chunk) error {
		delivered += len(chunk.Rows)
		colIdx := mapColumns(chunk.Header)
		for i, record := range chunk.Rows {
			// line_ordinal preserves the source row order within the entry.
			ordinal := chunk.Offset + i

			taxID, ok := cleanTaxID(getCol(record, colIdx, "CNPJ_Companhia"))
			if !ok {
				res.Reject(ReasonBadTaxID)
				continue
			}
			if !env.Known.Has(taxID) {
				res.Reject(ReasonUnknownCompany)
				continue
			}

			protocol := strings.TrimSpace(firstCol(record, colIdx, "Protocolo_Entrega", "ID_Documento"))
			if isMissing(protocol) {
				res.Reject(ReasonMissingKey)
				continue
			}

			group := strings.TrimSpace(getCol(record, colIdx, "Tipo_Cargo"))
			security := strings.TrimSpace(firstCol(record, colIdx, "Valor_Mobiliario", "Tipo_Valor_Mobiliario"))

			// The date is part of the row identity; a malformed one would
			// collapse onto other dateless rows.
			rawDate := firstCol(record, colIdx, "Data_Movimentacao", "Data_Referencia")
			date := parseDateISO(rawDate)
			if date == nil && !isMissing(rawDate) {
				res.Reject(ReasonParseDate)
				continue
			}

			opRaw := strings.TrimSpace(firstCol(record, colIdx, "Tipo_Movimentacao", "Tipo_Operacao"))
			op := operationTypeFrom(opRaw)

			assetRaw := strings.TrimSpace(firstCol(record, colIdx, "Caracteristica_Valor_Mobiliario", "Valor_Mobiliario"))
			asset := assetCategoryFrom(assetRaw)

			row := []any{
				taxID,
				protocol,
				group,
				security,
				string(op),
				normalizeStr(opRaw),
				date,
				ordinal,
				string(asset),
				normalizeStr(assetRaw),
				parseDecimalComma(getCol(record, colIdx, "Quantidade")),
				parseDecimalComma(getCol(record, colIdx, "Preco_Unitario")),
				parseDecimalComma(getCol(record, colIdx, "Volume")),
			}
			if err := writer.Add(ctx, row); err != nil {
				return err
			}
			res.Accept()
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "vlmo: read entry %s", entryName)
	}
	res.RejectN(ReasonParseRow, int64(read-delivered))

	if err := writer.Flush(ctx); err != nil {
		return nil, err
	}

	stats := writer.Stats()
	res.RowsWritten = stats.RowsWritten
	res.RowsFailed = stats.RowsFailed
	res.Batches = stats.BatchesFailed

	log.Info("insider transactions loaded",
		zap.Int64("rows_read", res.RowsRead),
		zap.Int64("rows_written", res.RowsWritten),
	)
	return res, nil
}
