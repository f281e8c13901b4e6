package model

import "time"

// ReportPeriod is the disclosure cadence of a financial report.
type ReportPeriod string

const (
	PeriodAnnual    ReportPeriod = "ANUAL"
	PeriodQuarterly ReportPeriod = "TRIMESTRAL"
)

// ReportKind is the regulator form the report was filed on.
type ReportKind string

const (
	KindAnnualForm  ReportKind = "DFP"
	KindInterimForm ReportKind = "ITR"
)

// StatementType identifies the canonical kind of one financial statement.
type StatementType string

const (
	StatementBalanceAssets       StatementType = "BPA"
	StatementBalanceLiabilities  StatementType = "BPP"
	StatementIncome              StatementType = "DRE"
	StatementCashflowDirect      StatementType = "DFC_MD"
	StatementCashflowIndirect    StatementType = "DFC_MI"
	StatementValueAdded          StatementType = "DVA"
	StatementComprehensiveIncome StatementType = "DRA"
)

// CurrencyScale is the unit the account values are expressed in.
type CurrencyScale string

const (
	ScaleUnit      CurrencyScale = "UNIDADE"
	ScaleThousands CurrencyScale = "MIL"
	ScaleMillions  CurrencyScale = "MILHAO"
	ScaleOther     CurrencyScale = "OTHER"
)

// FiscalYearOrder distinguishes current-year from prior-year columns.
type FiscalYearOrder string

const (
	OrderCurrent FiscalYearOrder = "ULTIMO"
	OrderPrior   FiscalYearOrder = "PENULTIMO"
	OrderOther   FiscalYearOrder = "OTHER"
)

// FinancialReport is one annual or quarterly filing for one company.
// Identity: (CompanyTaxID, Year, Period, Kind). Upserts keep the
// highest Version seen.
type FinancialReport struct {
	ID            int64        `json:"id"`
	CompanyTaxID  string       `json:"company_tax_id"`
	Year          int          `json:"year"`
	Period        ReportPeriod `json:"period"`
	Kind          ReportKind   `json:"report_kind"`
	ReferenceDate *time.Time   `json:"reference_date,omitempty"`
	Version       int          `json:"version"`
}

// ReportKey is the identity tuple used to materialize report IDs
// before statement lines are written.
type ReportKey struct {
	CompanyTaxID string
	Year         int
	Period       ReportPeriod
	Kind         ReportKind
}

// Key returns the report's identity tuple.
func (r FinancialReport) Key() ReportKey {
	return ReportKey{
		CompanyTaxID: r.CompanyTaxID,
		Year:         r.Year,
		Period:       r.Period,
		Kind:         r.Kind,
	}
}

// StatementLine is one account line inside a financial report.
// Identity: (ReportID, StatementType, AccountCode).
type StatementLine struct {
	ReportID           int64           `json:"report_id"`
	StatementType      StatementType   `json:"statement_type"`
	AccountCode        string          `json:"account_code"`
	AccountDescription *string         `json:"account_description,omitempty"`
	AccountValue       *float64        `json:"account_value,omitempty"`
	CurrencyScale      CurrencyScale   `json:"currency_scale"`
	FiscalYearOrder    FiscalYearOrder `json:"fiscal_year_order"`
}
