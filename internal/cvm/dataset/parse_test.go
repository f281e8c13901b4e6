package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTaxID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"19.131.243/0001-97", "19131243000197", true},
		{"19131243000197", "19131243000197", true},
		{" 19131243000197 ", "19131243000197", true},
		// Leading zeros stripped by a numeric source column get restored.
		{"191243000197", "00191243000197", true},
		{"0", "00000000000000", true},
		{"", "", false},
		{"NaN", "", false},
		{"123456789012345", "", false},
		{"19131243abc197", "", false},
	}
	for _, tt := range tests {
		got, ok := cleanTaxID(tt.in)
		assert.Equal(t, tt.ok, ok, "cleanTaxID(%q)", tt.in)
		assert.Equal(t, tt.want, got, "cleanTaxID(%q)", tt.in)
	}
}

func TestValidTicker(t *testing.T) {
	for _, s := range []string{"PETR4", "VALE3", "USIM5", "GOAU6", "SANB11"} {
		assert.True(t, validTicker(s), s)
	}
	for _, s := range []string{"PETR", "PETR12", "PET4", "petr4", "PETRA", "PETR4F", ""} {
		assert.False(t, validTicker(s), s)
	}
}

func TestIsMissing(t *testing.T) {
	for _, s := range []string{"", "  ", "NaN", "nan", "NaT", "N/A"} {
		assert.True(t, isMissing(s), "%q", s)
	}
	for _, s := range []string{"0", "x", "NA", "null"} {
		assert.False(t, isMissing(s), "%q", s)
	}
}

func TestParseDateISO(t *testing.T) {
	d := parseDateISO("2024-12-31")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), *d)

	assert.Nil(t, parseDateISO(""))
	assert.Nil(t, parseDateISO("NaT"))
	assert.Nil(t, parseDateISO("31/12/2024"))
	assert.Nil(t, parseDateISO("2024-13-01"))
}

func TestParseDecimalComma(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1234,56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{"1234.56", 1234.56},
		{"-42,5", -42.5},
		{"100", 100},
	}
	for _, tt := range tests {
		got := parseDecimalComma(tt.in)
		require.NotNil(t, got, tt.in)
		assert.InDelta(t, tt.want, *got, 1e-9, tt.in)
	}

	assert.Nil(t, parseDecimalComma(""))
	assert.Nil(t, parseDecimalComma("NaN"))
	assert.Nil(t, parseDecimalComma("abc"))
}

func TestParseIntOr(t *testing.T) {
	assert.Equal(t, 3, parseIntOr("3", -1))
	assert.Equal(t, 3, parseIntOr(" 3 ", -1))
	assert.Equal(t, -1, parseIntOr("", -1))
	assert.Equal(t, -1, parseIntOr("x", -1))
	assert.Equal(t, -1, parseIntOr("3.5", -1))
}

func TestNormalizeStr(t *testing.T) {
	got := normalizeStr("  Bancos  ")
	require.NotNil(t, got)
	assert.Equal(t, "Bancos", *got)
	assert.Nil(t, normalizeStr(""))
	assert.Nil(t, normalizeStr("NaN"))
}

func TestColumnHelpers(t *testing.T) {
	header := []string{"CNPJ_Companhia", " Nome_Empresarial", "Codigo_Negociacao"}
	idx := mapColumns(header)
	record := []string{"19131243000197", "PETROBRAS", "PETR4"}

	assert.Equal(t, "PETROBRAS", getCol(record, idx, "nome_empresarial"))
	assert.Equal(t, "PETROBRAS", getCol(record, idx, "Nome_Empresarial"))
	assert.Equal(t, "", getCol(record, idx, "Mercado"))

	// Short record: index beyond the row returns empty.
	assert.Equal(t, "", getCol(record[:1], idx, "Codigo_Negociacao"))

	assert.Equal(t, "PETR4", firstCol(record, idx, "Ticker", "Codigo_Negociacao"))
	assert.Equal(t, "", firstCol(record, idx, "Ticker", "Simbolo"))

	// firstCol skips columns holding a missing marker.
	record2 := []string{"NaN", "PETROBRAS", "PETR4"}
	assert.Equal(t, "PETROBRAS", firstCol(record2, idx, "CNPJ_Companhia", "Nome_Empresarial"))
}
