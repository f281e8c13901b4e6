package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mercado-total/cvmsync/internal/model"
)

func TestStatementTypeFromEntry(t *testing.T) {
	tests := []struct {
		name string
		want model.StatementType
		ok   bool
	}{
		{"dfp_cia_aberta_BPA_con_2024.csv", model.StatementBalanceAssets, true},
		{"dfp_cia_aberta_BPP_con_2024.csv", model.StatementBalanceLiabilities, true},
		{"itr_cia_aberta_DRE_con_2023.csv", model.StatementIncome, true},
		{"dfp_cia_aberta_DFC_MD_con_2024.csv", model.StatementCashflowDirect, true},
		{"dfp_cia_aberta_DFC_MI_con_2024.csv", model.StatementCashflowIndirect, true},
		{"dfp_cia_aberta_DVA_con_2024.csv", model.StatementValueAdded, true},
		{"dfp_cia_aberta_DRA_con_2024.csv", model.StatementComprehensiveIncome, true},

		// Individual (non-consolidated) entries are skipped.
		{"dfp_cia_aberta_BPA_ind_2024.csv", "", false},
		// The composite parent file carries no statement segment.
		{"dfp_cia_aberta_2024.csv", "", false},
		{"dfp_cia_aberta_XYZ_con_2024.csv", "", false},
		{"readme.txt", "", false},
	}
	for _, tt := range tests {
		got, ok := statementTypeFromEntry(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestCurrencyScaleFrom(t *testing.T) {
	assert.Equal(t, model.ScaleUnit, currencyScaleFrom("UNIDADE"))
	assert.Equal(t, model.ScaleThousands, currencyScaleFrom("MIL"))
	assert.Equal(t, model.ScaleThousands, currencyScaleFrom(" mil "))
	assert.Equal(t, model.ScaleMillions, currencyScaleFrom("MILHÃO"))
	assert.Equal(t, model.ScaleMillions, currencyScaleFrom("MILHAO"))
	assert.Equal(t, model.ScaleOther, currencyScaleFrom(""))
	assert.Equal(t, model.ScaleOther, currencyScaleFrom("BILHAO"))
}

func TestFiscalYearOrderFrom(t *testing.T) {
	assert.Equal(t, model.OrderCurrent, fiscalYearOrderFrom("ÚLTIMO"))
	assert.Equal(t, model.OrderCurrent, fiscalYearOrderFrom("ultimo"))
	assert.Equal(t, model.OrderPrior, fiscalYearOrderFrom("PENÚLTIMO"))
	assert.Equal(t, model.OrderPrior, fiscalYearOrderFrom("PENULTIMO"))
	assert.Equal(t, model.OrderOther, fiscalYearOrderFrom(""))
}

func TestOperationTypeFrom(t *testing.T) {
	assert.Equal(t, model.OperationBuy, operationTypeFrom("Compra à vista"))
	assert.Equal(t, model.OperationBuy, operationTypeFrom("Aquisição"))
	assert.Equal(t, model.OperationBuy, operationTypeFrom("Subscrição"))
	assert.Equal(t, model.OperationSell, operationTypeFrom("Venda à vista"))
	assert.Equal(t, model.OperationSell, operationTypeFrom("Alienação"))
	assert.Equal(t, model.OperationOther, operationTypeFrom("Doação"))
	assert.Equal(t, model.OperationOther, operationTypeFrom(""))
}

func TestAssetCategoryFrom(t *testing.T) {
	assert.Equal(t, model.AssetShares, assetCategoryFrom("Ações"))
	assert.Equal(t, model.AssetShares, assetCategoryFrom("ACOES ORDINARIAS"))
	assert.Equal(t, model.AssetDerivative, assetCategoryFrom("Opções de compra"))
	assert.Equal(t, model.AssetDerivative, assetCategoryFrom("Termo"))
	assert.Equal(t, model.AssetDebenture, assetCategoryFrom("Debênture conversível"))
	assert.Equal(t, model.AssetOther, assetCategoryFrom("CRI"))
	assert.Equal(t, model.AssetOther, assetCategoryFrom(""))
}

func TestListedSecurity(t *testing.T) {
	assert.True(t, listedSecurity("Bolsa", "Ações Ordinárias"))
	assert.True(t, listedSecurity("Bolsa de Valores", "Units"))
	assert.True(t, listedSecurity("BOLSA", "BDRs Nível I"))

	assert.False(t, listedSecurity("Balcão Organizado", "Ações Ordinárias"))
	assert.False(t, listedSecurity("Bolsa", "Debêntures"))
	assert.False(t, listedSecurity("", ""))
}
