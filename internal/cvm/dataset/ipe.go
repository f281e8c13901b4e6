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

// IPE implements the disclosure index dataset: one row per regulatory filing,
// pointing at the externally hosted document.
type IPE struct{}

func (d *IPE) Name() string           { return "ipe" }
func (d *IPE) Table() string          { return "cvm_documents" }
func (d *IPE) RequiresRegistry() bool { return true }
func (d *IPE) Yearly() bool           { return true }

func (d *IPE) Sync(ctx context.Context, env *Env, year int) (*Result, error) {
	log := zap.L().With(zap.String("dataset", "ipe"), zap.Int("year", year))

	data, err := env.Fetcher.DownloadArchive(ctx, env.ArchiveURL("IPE", year))
	if err != nil {
		return nil, err
	}

	arc, err := fetcher.OpenArchive(data)
	if err != nil {
		return nil, eris.Wrapf(err, "ipe: open archive year %d", year)
	}

	entryName := fmt.Sprintf("ipe_cia_aberta_%d.csv", year)
	entry, ok := arc.Entry(entryName)
	if !ok {
		return nil, eris.Errorf("ipe: entry %s not found in archive", entryName)
	}

	text, err := entry.Text(fetcher.EncodingUTF8)
	if err != nil {
		return nil, eris.Wrapf(err, "ipe: decode entry %s", entryName)
	}
	defer text.Close()

	writer := db.NewBatchWriter(env.Pool, db.UpsertConfig{
		Table: "cvm_documents",
		Columns: []string{
			"company_tax_id", "delivery_protocol", "category", "doc_type",
			"species", "subject", "reference_date", "delivery_date", "download_url",
		},
		ConflictKeys: []string{"company_tax_id", "delivery_protocol"},
		UpdateExprs:  []string{"updated_at = now()"},
	}, env.BatchSize)

	res := NewResult()

	var delivered int
	read, err := fetcher.ReadChunks(ctx, text, fetcher.CSVOptions{ChunkSize: env.ChunkSize}, func(chunk fetcher.Chunk) error {
		delivered += len(chunk.Rows)
		colIdx := mapColumns(chunk.Header)
		for _, record := range chunk.Rows {
			taxID, ok := cleanTaxID(firstCol(record, colIdx, "CNPJ_Companhia", "CNPJ_CIA"))
			if !ok {
				res.Reject(ReasonBadTaxID)
				continue
			}
			if !env.Known.Has(taxID) {
				res.Reject(ReasonUnknownCompany)
				continue
			}

			protocol := strings.TrimSpace(firstCol(record, colIdx, "Protocolo_Entrega", "Protocolo"))
			if isMissing(protocol) {
				res.Reject(ReasonMissingKey)
				continue
			}

			row := []any{
				taxID,
				protocol,
				normalizeStr(getCol(record, colIdx, "Categoria")),
				normalizeStr(getCol(record, colIdx, "Tipo")),
				normalizeStr(getCol(record, colIdx, "Especie")),
				normalizeStr(getCol(record, colIdx, "Assunto")),
				parseDateISO(getCol(record, colIdx, "Data_Referencia")),
				parseDateISO(getCol(record, colIdx, "Data_Entrega")),
				normalizeStr(getCol(record, colIdx, "Link_Download")),
			}
			if err := writer.Add(ctx, row); err != nil {
				return err
			}
			res.Accept()
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ipe: read entry %s", entryName)
	}
	res.RejectN(ReasonParseRow, int64(read-delivered))

	if err := writer.Flush(ctx); err != nil {
		return nil, err
	}

	stats := writer.Stats()
	res.RowsWritten = stats.RowsWritten
	res.RowsFailed = stats.RowsFailed
	res.Batches = stats.BatchesFailed

	log.Info("disclosure index loaded",
		zap.Int64("rows_read", res.RowsRead),
		zap.Int64("rows_written", res.RowsWritten),
	)
	return res, nil
}
