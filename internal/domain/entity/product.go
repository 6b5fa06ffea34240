package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product ítem de catálogo que puede referenciarse desde una línea del comprobante.
type Product struct {
	ID          string
	CompanyID   string
	Code        string // código interno, único por empresa
	Description string
	UnitMeasure string // NIU, ZZ, KGM... o alias (UND, KG)
	UnitPrice   decimal.Decimal
	TaxType     string // catálogo 07
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
