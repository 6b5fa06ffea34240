package sunat

import (
	"fmt"
	"strings"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// ValidateIssuer exige RUC válido y razón social; son obligatorios para construir el XML.
func ValidateIssuer(company *entity.Company) error {
	if company == nil {
		return NewValidationError("emisor no encontrado")
	}
	var problems []string
	if strings.TrimSpace(company.RUC) == "" {
		problems = append(problems, "el emisor no tiene RUC")
	} else if err := pkgsunat.ValidateRUC(company.RUC); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(company.LegalName) == "" {
		problems = append(problems, "el emisor no tiene razón social")
	}
	if len(problems) > 0 {
		return NewValidationError(problems...)
	}
	return nil
}

// ValidateCustomer valida el adquirente cuando existe. nil es válido (comprador genérico).
func ValidateCustomer(customer *entity.Customer) error {
	if customer == nil {
		return nil
	}
	var problems []string
	if strings.TrimSpace(customer.IdentityNumber) == "" {
		problems = append(problems, "el cliente no tiene número de documento")
	}
	if strings.TrimSpace(customer.Name) == "" {
		problems = append(problems, "el cliente no tiene nombre o razón social")
	}
	if pkgsunat.IdentitySchemeID(customer.IdentityType) == pkgsunat.IdentitySchemeRUC {
		if err := pkgsunat.ValidateRUC(customer.IdentityNumber); err != nil {
			problems = append(problems, "cliente: "+err.Error())
		}
	}
	if len(problems) > 0 {
		return NewValidationError(problems...)
	}
	return nil
}

// ValidateDocument verifica cabecera, líneas y que los totales cuadren con la suma de las líneas.
func ValidateDocument(doc *entity.Document, items []*entity.DocumentItem) error {
	if doc == nil {
		return NewValidationError("comprobante nulo")
	}
	var problems []string
	if !pkgsunat.ValidDocumentTypes[doc.DocumentType] {
		problems = append(problems, fmt.Sprintf("tipo de documento no soportado: %q", doc.DocumentType))
	} else if err := pkgsunat.ValidateSeries(doc.DocumentType, doc.Series); err != nil {
		problems = append(problems, err.Error())
	}
	if doc.Number <= 0 {
		problems = append(problems, "el correlativo debe ser mayor a cero")
	}
	if doc.IssueDate.IsZero() {
		problems = append(problems, "falta la fecha de emisión")
	}
	if len(items) == 0 {
		problems = append(problems, "el comprobante debe tener al menos una línea")
	}

	for i, it := range items {
		problems = append(problems, validateItem(i+1, it)...)
	}

	if len(items) > 0 {
		sum := SumItems(items)
		if !doc.TotalTaxed.Equal(sum.Taxed) {
			problems = append(problems, fmt.Sprintf("total gravado (%s) no coincide con la suma de subtotales (%s)", doc.TotalTaxed.StringFixed(2), sum.Taxed.StringFixed(2)))
		}
		if !doc.TotalIGV.Equal(sum.IGV) {
			problems = append(problems, fmt.Sprintf("total IGV (%s) no coincide con la suma de IGV por línea (%s)", doc.TotalIGV.StringFixed(2), sum.IGV.StringFixed(2)))
		}
	}
	expected := doc.TotalTaxed.Add(doc.TotalIGV).Round(2)
	if doc.Total.Sub(expected).Abs().GreaterThan(Tolerance) {
		problems = append(problems, fmt.Sprintf("total (%s) no coincide con gravado + IGV (%s)", doc.Total.StringFixed(2), expected.StringFixed(2)))
	}

	if len(problems) > 0 {
		return NewValidationError(problems...)
	}
	return nil
}

func validateItem(pos int, it *entity.DocumentItem) []string {
	var problems []string
	if strings.TrimSpace(it.Description) == "" {
		problems = append(problems, fmt.Sprintf("línea %d: falta la descripción", pos))
	}
	if !it.Quantity.IsPositive() {
		problems = append(problems, fmt.Sprintf("línea %d: la cantidad debe ser mayor a cero", pos))
	}
	if it.UnitPrice.IsNegative() {
		problems = append(problems, fmt.Sprintf("línea %d: el precio unitario no puede ser negativo", pos))
	}
	if _, ok := pkgsunat.LookupTaxType(it.TaxType); !ok {
		problems = append(problems, fmt.Sprintf("línea %d: tipo de afectación desconocido %q", pos, it.TaxType))
	}

	if pkgsunat.IsTaxable(it.TaxType) {
		want := it.Quantity.Mul(it.UnitPrice).Mul(IGVRate).Round(2)
		if !it.IGV.Equal(want) {
			problems = append(problems, fmt.Sprintf("línea %d: IGV (%s) debe ser %s", pos, it.IGV.StringFixed(2), want.StringFixed(2)))
		}
		if !it.Total.Equal(it.Subtotal.Add(it.IGV).Round(2)) {
			problems = append(problems, fmt.Sprintf("línea %d: total (%s) debe ser subtotal + IGV", pos, it.Total.StringFixed(2)))
		}
	} else {
		if !it.IGV.IsZero() {
			problems = append(problems, fmt.Sprintf("línea %d: una línea no gravada no lleva IGV (%s)", pos, it.IGV.StringFixed(2)))
		}
		if !it.Total.Equal(it.Subtotal) {
			problems = append(problems, fmt.Sprintf("línea %d: total (%s) debe ser igual al subtotal (%s)", pos, it.Total.StringFixed(2), it.Subtotal.StringFixed(2)))
		}
	}
	return problems
}
