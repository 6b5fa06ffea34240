package sunat

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// IGVRate tasa del IGV (18%).
var IGVRate = decimal.RequireFromString("0.18")

// Tolerance diferencia máxima admitida entre total y base + IGV.
var Tolerance = decimal.RequireFromString("0.01")

// InputScale decimales que se persisten para cantidad y precio unitario (NUMERIC(14,4)).
// Los importes de línea se calculan sobre esos valores, así que la entrada no puede traer más.
const InputScale int32 = 4

// FitsInputScale indica si d se guarda sin redondeo.
func FitsInputScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(InputScale))
}

// LineAmounts importes calculados para una línea.
type LineAmounts struct {
	Subtotal decimal.Decimal
	IGV      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeLine calcula subtotal, IGV y total. Solo la afectación 10 genera IGV.
func ComputeLine(quantity, unitPrice decimal.Decimal, taxType string) LineAmounts {
	gross := quantity.Mul(unitPrice)
	subtotal := gross.Round(2)
	igv := decimal.Zero
	if pkgsunat.IsTaxable(taxType) {
		igv = gross.Mul(IGVRate).Round(2)
	}
	return LineAmounts{Subtotal: subtotal, IGV: igv, Total: subtotal.Add(igv).Round(2)}
}

// ApplyLine completa subtotal, IGV y total de la línea.
func ApplyLine(item *entity.DocumentItem) {
	a := ComputeLine(item.Quantity, item.UnitPrice, item.TaxType)
	item.Subtotal, item.IGV, item.Total = a.Subtotal, a.IGV, a.Total
}

// DocumentTotals totales de cabecera.
type DocumentTotals struct {
	Taxed decimal.Decimal
	IGV   decimal.Decimal
	Total decimal.Decimal
}

// SumItems suma subtotales e IGV de las líneas.
func SumItems(items []*entity.DocumentItem) DocumentTotals {
	var t DocumentTotals
	for _, it := range items {
		t.Taxed = t.Taxed.Add(it.Subtotal)
		t.IGV = t.IGV.Add(it.IGV)
	}
	t.Taxed = t.Taxed.Round(2)
	t.IGV = t.IGV.Round(2)
	t.Total = t.Taxed.Add(t.IGV).Round(2)
	return t
}

// ApplyTotals copia los totales calculados a la cabecera.
func ApplyTotals(doc *entity.Document, items []*entity.DocumentItem) {
	t := SumItems(items)
	doc.TotalTaxed, doc.TotalIGV, doc.Total = t.Taxed, t.IGV, t.Total
}
