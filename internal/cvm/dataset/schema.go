package dataset

import (
	"strings"

	"github.com/mercado-total/cvmsync/internal/model"
)

// statementTypes maps the entry filename segment between the dataset tag and
// the year, e.g. dfp_cia_aberta_BPA_con_2024.csv, to the canonical statement
// type. Only consolidated (_con_) entries are loaded.
var statementTypes = map[string]model.StatementType{
	"BPA":    model.StatementBalanceAssets,
	"BPP":    model.StatementBalanceLiabilities,
	"DRE":    model.StatementIncome,
	"DFC_MD": model.StatementCashflowDirect,
	"DFC_MI": model.StatementCashflowIndirect,
	"DVA":    model.StatementValueAdded,
	"DRA":    model.StatementComprehensiveIncome,
}

// statementTypeFromEntry extracts the statement type from an archive entry
// name like "itr_cia_aberta_DRE_con_2023.csv". Returns false for individual
// files and unrecognized segments.
func statementTypeFromEntry(name string) (model.StatementType, bool) {
	base := strings.TrimSuffix(name, ".csv")
	if !strings.Contains(base, "_con_") {
		return "", false
	}
	parts := strings.Split(base, "_cia_aberta_")
	if len(parts) != 2 {
		return "", false
	}
	seg := parts[1]
	if i := strings.LastIndex(seg, "_con_"); i >= 0 {
		seg = seg[:i]
	}
	st, ok := statementTypes[strings.ToUpper(seg)]
	return st, ok
}

// currencyScaleFrom maps ESCALA_MOEDA values. Unknown scales become OTHER.
func currencyScaleFrom(s string) model.CurrencyScale {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNIDADE":
		return model.ScaleUnit
	case "MIL":
		return model.ScaleThousands
	case "MILHAO", "MILHÃO":
		return model.ScaleMillions
	default:
		return model.ScaleOther
	}
}

// fiscalYearOrderFrom maps ORDEM_EXERC values. Unknown orders become OTHER.
func fiscalYearOrderFrom(s string) model.FiscalYearOrder {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ÚLTIMO", "ULTIMO":
		return model.OrderCurrent
	case "PENÚLTIMO", "PENULTIMO":
		return model.OrderPrior
	default:
		return model.OrderOther
	}
}

// operationTypeFrom maps the movement type of an insider trade. Unknown
// variants become OTHER with the raw value preserved by the caller.
func operationTypeFrom(s string) model.OperationType {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(v, "COMPRA"), strings.HasPrefix(v, "AQUISI"), strings.HasPrefix(v, "SUBSCRI"):
		return model.OperationBuy
	case strings.HasPrefix(v, "VENDA"), strings.HasPrefix(v, "ALIENA"):
		return model.OperationSell
	default:
		return model.OperationOther
	}
}

// assetCategoryFrom classifies the traded security description. Unknown
// variants become OTHER with the raw value preserved by the caller.
func assetCategoryFrom(s string) model.AssetCategory {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.Contains(v, "AÇÕES"), strings.Contains(v, "ACOES"), strings.Contains(v, "AÇÃO"):
		return model.AssetShares
	case strings.Contains(v, "DERIV"), strings.Contains(v, "OPÇ"), strings.Contains(v, "OPC"), strings.Contains(v, "TERMO"):
		return model.AssetDerivative
	case strings.Contains(v, "DEBÊNTURE"), strings.Contains(v, "DEBENTURE"):
		return model.AssetDebenture
	default:
		return model.AssetOther
	}
}

// listedSecurity reports whether an FCA securities row describes an
// exchange-listed instrument the registry should carry: traded on the Bolsa
// segment, and being shares, units or depositary receipts.
func listedSecurity(market, securityType string) bool {
	m := strings.ToLower(market)
	if !strings.Contains(m, "bolsa") {
		return false
	}
	st := strings.ToLower(securityType)
	return strings.Contains(st, "ações") || strings.Contains(st, "acoes") ||
		strings.Contains(st, "units") || strings.Contains(st, "bdrs")
}
