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

// FCA implements the company registry dataset, sourced from the FCA
// (Formulário Cadastral) archive. It runs before any dependent dataset and
// populates the companies and tickers tables.
type FCA struct{}

func (d *FCA) Name() string           { return "fca" }
func (d *FCA) Table() string          { return "companies" }
func (d *FCA) RequiresRegistry() bool { return false }
func (d *FCA) Yearly() bool           { return false }

// geralInfo carries the per-company enrichment read from the general entry.
type geralInfo struct {
	industry *string
	cvmCode  *int
	active   bool
	hasState bool
}

func (d *FCA) Sync(ctx context.Context, env *Env, year int) (*Result, error) {
	log := zap.L().With(zap.String("dataset", "fca"))

	// The current-year archive appears some weeks into the year; fall back
	// one year when it is not published yet.
	data, err := env.Fetcher.DownloadArchive(ctx, env.ArchiveURL("FCA", year))
	if eris.Is(err, fetcher.ErrNotFound) {
		year--
		log.Info("registry archive not published yet, falling back", zap.Int("year", year))
		data, err = env.Fetcher.DownloadArchive(ctx, env.ArchiveURL("FCA", year))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "fca: download year %d", year)
	}

	arc, err := fetcher.OpenArchive(data)
	if err != nil {
		return nil, eris.Wrapf(err, "fca: open archive year %d", year)
	}

	enrich, err := d.readGeral(ctx, env, arc, year)
	if err != nil {
		return nil, err
	}

	entryName := fmt.Sprintf("fca_cia_aberta_valor_mobiliario_%d.csv", year)
	entry, ok := arc.Entry(entryName)
	if !ok {
		return nil, eris.Errorf("fca: entry %s not found in archive", entryName)
	}

	text, err := entry.Text(fetcher.EncodingUTF8)
	if err != nil {
		return nil, eris.Wrapf(err, "fca: decode entry %s", entryName)
	}
	defer text.Close()

	companies := db.NewBatchWriter(env.Pool, db.UpsertConfig{
		Table:        "companies",
		Columns:      []string{"tax_id", "legal_name", "trading_name", "industry_classification", "cvm_code", "is_active"},
		ConflictKeys: []string{"tax_id"},
		UpdateExprs:  []string{"updated_at = now()"},
	}, env.BatchSize)
	tickers := db.NewBatchWriter(env.Pool, db.UpsertConfig{
		Table:        "tickers",
		Columns:      []string{"symbol", "company_tax_id", "is_active"},
		ConflictKeys: []string{"symbol"},
		UpdateExprs:  []string{"updated_at = now()"},
	}, env.BatchSize)

	res := NewResult()

	var delivered int
	read, err := fetcher.ReadChunks(ctx, text, fetcher.CSVOptions{ChunkSize: env.ChunkSize}, func(chunk fetcher.Chunk) error {
		delivered += len(chunk.Rows)
		colIdx := mapColumns(chunk.Header)
		for _, record := range chunk.Rows {
			market := getCol(record, colIdx, "Mercado")
			secType := getCol(record, colIdx, "Valor_Mobiliario")
			if !listedSecurity(market, secType) {
				res.Reject(ReasonFiltered)
				continue
			}

			symbol := strings.ToUpper(strings.TrimSpace(getCol(record, colIdx, "Codigo_Negociacao")))
			if isMissing(symbol) {
				res.Reject(ReasonFiltered)
				continue
			}
			if !validTicker(symbol) {
				res.Reject(ReasonBadTicker)
				continue
			}

			taxID, ok := cleanTaxID(getCol(record, colIdx, "CNPJ_Companhia"))
			if !ok {
				res.Reject(ReasonBadTaxID)
				continue
			}

			legalName := strings.TrimSpace(getCol(record, colIdx, "Nome_Empresarial"))
			if isMissing(legalName) {
				res.Reject(ReasonMissingKey)
				continue
			}

			var industry *string
			var cvmCode *int
			active := true
			if g, ok := enrich[taxID]; ok {
				industry = g.industry
				cvmCode = g.cvmCode
				if g.hasState {
					active = g.active
				}
			}

			// The source carries no separate trading name; mirror the
			// legal name as the original registry loader does.
			if err := companies.Add(ctx, []any{taxID, legalName, legalName, industry, cvmCode, active}); err != nil {
				return err
			}
			if err := tickers.Add(ctx, []any{symbol, taxID, true}); err != nil {
				return err
			}
			res.Accept()
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fca: read entry %s", entryName)
	}
	res.RejectN(ReasonParseRow, int64(read-delivered))

	if err := companies.Flush(ctx); err != nil {
		return nil, err
	}
	if err := tickers.Flush(ctx); err != nil {
		return nil, err
	}

	cs, ts := companies.Stats(), tickers.Stats()
	res.RowsWritten = cs.RowsWritten + ts.RowsWritten
	res.RowsFailed = cs.RowsFailed + ts.RowsFailed
	res.Batches = cs.BatchesFailed + ts.BatchesFailed

	log.Info("registry loaded",
		zap.Int("year", year),
		zap.Int64("rows_read", res.RowsRead),
		zap.Int64("rows_written", res.RowsWritten),
	)
	return res, nil
}

// readGeral reads the general company entry when present, keyed by tax ID.
// The entry is optional; older archives ship without it.
func (d *FCA) readGeral(ctx context.Context, env *Env, arc *fetcher.Archive, year int) (map[string]geralInfo, error) {
	entryName := fmt.Sprintf("fca_cia_aberta_geral_%d.csv", year)
	entry, ok := arc.Entry(entryName)
	if !ok {
		return nil, nil
	}

	text, err := entry.Text(fetcher.EncodingUTF8)
	if err != nil {
		return nil, eris.Wrapf(err, "fca: decode entry %s", entryName)
	}
	defer text.Close()

	enrich := make(map[string]geralInfo)
	_, err = fetcher.ReadChunks(ctx, text, fetcher.CSVOptions{ChunkSize: env.ChunkSize}, func(chunk fetcher.Chunk) error {
		colIdx := mapColumns(chunk.Header)
		for _, record := range chunk.Rows {
			taxID, ok := cleanTaxID(getCol(record, colIdx, "CNPJ_Companhia"))
			if !ok {
				continue
			}

			info := geralInfo{
				industry: normalizeStr(getCol(record, colIdx, "Setor_Atividade")),
			}
			if code := firstCol(record, colIdx, "Codigo_CVM", "CD_CVM"); code != "" {
				if v := parseIntOr(code, -1); v >= 0 {
					c := v
					info.cvmCode = &c
				}
			}
			if sit := firstCol(record, colIdx, "Situacao_Registro_CVM", "Situacao"); sit != "" {
				info.active = strings.EqualFold(sit, "Ativo")
				info.hasState = true
			}
			enrich[taxID] = info
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fca: read entry %s", entryName)
	}
	return enrich, nil
}
