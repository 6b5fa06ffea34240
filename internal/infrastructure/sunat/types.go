// Package sunat implementa la generación del XML UBL 2.1 y el envío de comprobantes a SUNAT (Perú).
package sunat

import (
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// LineForXML línea del comprobante con la unidad de medida ya resuelta desde el producto.
type LineForXML struct {
	Item        *entity.DocumentItem
	UnitMeasure string // unidad del producto; vacío si la línea no referencia producto
}

// BuildContext datos necesarios para construir el XML del comprobante.
type BuildContext struct {
	Document *entity.Document
	Company  *entity.Company  // emisor (AccountingSupplierParty)
	Customer *entity.Customer // adquirente; nil = comprador genérico
	Lines    []LineForXML     // en el orden del comprobante
}
