package dto

import "github.com/shopspring/decimal"

// CreateProductRequest alta de un producto de catálogo.
// unit_measure acepta código UN/ECE (NIU, ZZ, KGM) o alias (UND, KG); tax_type es el catálogo 07.
type CreateProductRequest struct {
	Code        string          `json:"code" validate:"required,max=64"`
	Description string          `json:"description" validate:"required,max=500"`
	UnitMeasure string          `json:"unit_measure,omitempty" validate:"max=16"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxType     string          `json:"tax_type,omitempty" validate:"omitempty,oneof=10 20 30 40"`
}

// UpdateProductRequest campos nil no se modifican.
type UpdateProductRequest struct {
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	UnitMeasure *string          `json:"unit_measure,omitempty" validate:"omitempty,max=16"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	TaxType     *string          `json:"tax_type,omitempty" validate:"omitempty,oneof=10 20 30 40"`
}

// ProductResponse producto en respuestas.
type ProductResponse struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	UnitMeasure string          `json:"unit_measure"`
	UnitCode    string          `json:"unit_code"` // código UN/ECE resuelto
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxType     string          `json:"tax_type"`
}
