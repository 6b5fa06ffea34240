package dto

import "github.com/shopspring/decimal"

// CreateDocumentRequest body para POST /api/documents y PUT /api/documents/:id.
// Los importes de línea y los totales se calculan en el servidor.
type CreateDocumentRequest struct {
	CustomerID   string                `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	DocumentType string                `json:"document_type" validate:"required,oneof=01 03 07 08"`
	Series       string                `json:"series" validate:"required,len=4,alphanum"`
	IssueDate    string                `json:"issue_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Currency     string                `json:"currency,omitempty" validate:"omitempty,oneof=PEN USD EUR"`
	Items        []DocumentItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DocumentItemRequest línea del comprobante. Sin product_id se requiere descripción y precio.
type DocumentItemRequest struct {
	ProductID   string          `json:"product_id,omitempty" validate:"omitempty,uuid"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxType     string          `json:"tax_type,omitempty" validate:"omitempty,oneof=10 20 30 40"`
}

// DocumentResponse comprobante con líneas para GET /api/documents/:id.
type DocumentResponse struct {
	ID           string                 `json:"id"`
	CompanyID    string                 `json:"company_id"`
	CustomerID   string                 `json:"customer_id,omitempty"`
	DocumentType string                 `json:"document_type"`
	Series       string                 `json:"series"`
	Number       int64                  `json:"number"`
	FullNumber   string                 `json:"full_number"` // F001-00000001
	IssueDate    string                 `json:"issue_date"`
	Currency     string                 `json:"currency"`
	TotalTaxed   decimal.Decimal        `json:"total_taxed"`
	TotalIGV     decimal.Decimal        `json:"total_igv"`
	Total        decimal.Decimal        `json:"total"`
	Hash         string                 `json:"hash,omitempty"`
	Status       string                 `json:"status"`
	Signed       bool                   `json:"signed"`
	Items        []DocumentItemResponse `json:"items"`
	Sunat        *SunatResponseDTO      `json:"sunat,omitempty"`
}

// DocumentItemResponse línea en la respuesta.
type DocumentItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id,omitempty"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxType     string          `json:"tax_type"`
	IGV         decimal.Decimal `json:"igv"`
	Total       decimal.Decimal `json:"total"`
}

// SunatResponseDTO última respuesta registrada para el comprobante.
type SunatResponseDTO struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HasCDR     bool   `json:"has_cdr"`
	ReceivedAt string `json:"received_at"`
}

// DocumentStatusDTO respuesta ligera para el polling GET /api/documents/:id/status.
// El cliente consulta hasta que status sea ACCEPTED, REJECTED o CANCELED.
type DocumentStatusDTO struct {
	ID           string `json:"id"`
	Status       string `json:"status"` // PENDING|SENT|ACCEPTED|REJECTED|CANCELED
	Hash         string `json:"hash,omitempty"`
	SunatCode    string `json:"sunat_code,omitempty"`
	SunatMessage string `json:"sunat_message,omitempty"`
}

// DocumentListResponse página de comprobantes.
type DocumentListResponse struct {
	Data []DocumentResponse `json:"data"`
	Page PageResponse       `json:"page"`
}
