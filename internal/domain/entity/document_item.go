package entity

import "github.com/shopspring/decimal"

// DocumentItem línea de detalle de un comprobante.
type DocumentItem struct {
	ID          string
	DocumentID  string
	ProductID   string // opcional
	Position    int    // orden 1-based dentro del comprobante
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal // valor unitario sin IGV
	Subtotal    decimal.Decimal // quantity * unit_price
	TaxType     string          // catálogo 07
	IGV         decimal.Decimal
	Total       decimal.Decimal // subtotal + igv
}
