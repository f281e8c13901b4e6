package model

import "time"

// DisclosureDocument is one record of the regulator's filing index (IPE),
// pointing at an externally hosted document.
// Identity: (CompanyTaxID, DeliveryProtocol).
type DisclosureDocument struct {
	CompanyTaxID     string     `json:"company_tax_id"`
	DeliveryProtocol string     `json:"delivery_protocol"`
	Category         *string    `json:"category,omitempty"`
	DocType          *string    `json:"doc_type,omitempty"`
	Species          *string    `json:"species,omitempty"`
	Subject          *string    `json:"subject,omitempty"`
	ReferenceDate    *time.Time `json:"reference_date,omitempty"`
	DeliveryDate     *time.Time `json:"delivery_date,omitempty"`
	DownloadURL      *string    `json:"download_url,omitempty"`
}
