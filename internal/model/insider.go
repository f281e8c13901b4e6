package model

import "time"

// OperationType classifies an insider trade.
type OperationType string

const (
	OperationBuy   OperationType = "COMPRA"
	OperationSell  OperationType = "VENDA"
	OperationOther OperationType = "OTHER"
)

// AssetCategory classifies the traded security.
type AssetCategory string

const (
	AssetShares     AssetCategory = "ACAO"
	AssetDerivative AssetCategory = "DERIVATIVO"
	AssetDebenture  AssetCategory = "DEBENTURE"
	AssetOther      AssetCategory = "OTHER"
)

// InsiderTransaction is one reported trade by a controlling party or
// corporate officer, from the consolidated securities-movement dataset.
// Identity: (FilingProtocol, GroupCode, SecurityCode, OperationType,
// TransactionDate, LineOrdinal). LineOrdinal is the row index within the
// source entry, preserving the archive's implicit order.
type InsiderTransaction struct {
	FilingProtocol  string        `json:"filing_protocol"`
	GroupCode       string        `json:"group_code"`
	SecurityCode    string        `json:"security_code"`
	OperationType   OperationType `json:"operation_type"`
	OperationRaw    *string       `json:"operation_raw,omitempty"`
	TransactionDate *time.Time    `json:"transaction_date,omitempty"`
	LineOrdinal     int           `json:"line_ordinal"`
	CompanyTaxID    string        `json:"company_tax_id"`
	AssetType       AssetCategory `json:"asset_type"`
	AssetTypeRaw    *string       `json:"asset_type_raw,omitempty"`
	Quantity        *float64      `json:"quantity,omitempty"`
	Price           *float64      `json:"price,omitempty"`
	Volume          *float64      `json:"volume,omitempty"`
}
