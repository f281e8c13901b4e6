// Package model defines the canonical entities persisted by the ETL.
package model

import "time"

// Company is the authoritative entity referenced by every other table.
// TaxID is the 14-digit CNPJ, zero-padded, punctuation stripped.
type Company struct {
	TaxID                  string    `json:"tax_id"`
	LegalName              string    `json:"legal_name"`
	TradingName            *string   `json:"trading_name,omitempty"`
	IndustryClassification *string   `json:"industry_classification,omitempty"`
	CVMCode                *int      `json:"cvm_code,omitempty"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Ticker is a tradable symbol on the exchange, linked to a Company.
// Symbol is a 4-letter root plus a share-class suffix (3, 4, 5, 6 or 11).
type Ticker struct {
	Symbol       string    `json:"symbol"`
	CompanyTaxID string    `json:"company_tax_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
