package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida del comprobante.
const (
	DocumentStatusPending  = "PENDING"  // creado, editable y reenviable
	DocumentStatusSent     = "SENT"     // despachado, a la espera de confirmación de SUNAT
	DocumentStatusAccepted = "ACCEPTED" // aceptado por SUNAT (statusCode 0)
	DocumentStatusRejected = "REJECTED" // rechazado o fallido de forma terminal
	DocumentStatusCanceled = "CANCELED" // anulado manualmente cuando aún estaba pendiente
)

// Document cabecera de un comprobante electrónico (factura, boleta o nota).
type Document struct {
	ID           string
	CompanyID    string
	CustomerID   string // vacío = comprador genérico (boletas)
	DocumentType string // catálogo 01
	Series       string // F001, B001...
	Number       int64  // correlativo único por emisor + tipo + serie
	IssueDate    time.Time
	Currency     string
	TotalTaxed   decimal.Decimal // base imponible
	TotalIGV     decimal.Decimal
	Total        decimal.Decimal
	XML          string // UBL sin firma
	XMLSigned    string // UBL con ds:Signature + XAdES
	Hash         string // SHA-256 hex del XML sin firma normalizado
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCustomer indica si el comprobante tiene adquirente identificado.
func (d *Document) HasCustomer() bool {
	return d.CustomerID != ""
}
