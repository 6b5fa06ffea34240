package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// Namespaces UBL 2.1 usados por SUNAT.
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsDs      = "http://www.w3.org/2000/09/xmldsig#"
)

var igvFactor = decimal.RequireFromString("1.18")

// XMLBuilderService construye el XML UBL 2.1 del comprobante (sin firma).
type XMLBuilderService struct {
	defaultCurrency string
	now             func() time.Time
}

// NewXMLBuilderService crea el servicio. defaultCurrency se usa si el comprobante no trae moneda.
func NewXMLBuilderService(defaultCurrency string) *XMLBuilderService {
	if defaultCurrency == "" {
		defaultCurrency = sunat.CurrencyPEN
	}
	return &XMLBuilderService{defaultCurrency: defaultCurrency, now: time.Now}
}

// WithClock fija el reloj usado para cbc:IssueTime.
func (s *XMLBuilderService) WithClock(now func() time.Time) *XMLBuilderService {
	s.now = now
	return s
}

// Build genera el documento Invoice. Es una transformación pura: no persiste nada.
func (s *XMLBuilderService) Build(ctx *BuildContext) (string, error) {
	if ctx == nil || ctx.Document == nil {
		return "", domsunat.NewValidationError("falta el comprobante en el contexto")
	}
	if ctx.Company == nil {
		return "", domsunat.NewValidationError("falta el emisor")
	}
	var problems []string
	if strings.TrimSpace(ctx.Company.RUC) == "" {
		problems = append(problems, "el emisor no tiene RUC")
	}
	if strings.TrimSpace(ctx.Company.LegalName) == "" {
		problems = append(problems, "el emisor no tiene razón social")
	}
	if len(problems) > 0 {
		return "", domsunat.NewValidationError(problems...)
	}

	doc := ctx.Document
	currency := doc.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "Invoice"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: NsInvoice},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
			{Name: xml.Name{Local: "xmlns:ds"}, Value: NsDs},
			{Name: xml.Name{Local: "xmlns:ext"}, Value: NsExt},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return "", fmt.Errorf("sunat: escribir raíz: %w", err)
	}

	// ext:UBLExtensions siempre primero: el firmador inyecta ds:Signature en el ExtensionContent vacío.
	open(enc, "ext:UBLExtensions")
	open(enc, "ext:UBLExtension")
	open(enc, "ext:ExtensionContent")
	closeEl(enc, "ext:ExtensionContent")
	closeEl(enc, "ext:UBLExtension")
	closeEl(enc, "ext:UBLExtensions")

	writeCbc(enc, "UBLVersionID", sunat.UBLVersion)
	writeCbc(enc, "CustomizationID", sunat.CustomizationID)
	writeCbc(enc, "ID", sunat.DocumentID(doc.Series, doc.Number))
	writeCbc(enc, "IssueDate", doc.IssueDate.Format("2006-01-02"))
	writeCbc(enc, "IssueTime", s.now().Format("15:04:05"))
	writeCbc(enc, "InvoiceTypeCode", doc.DocumentType)
	writeCbcWithAttr(enc, "Note", sunat.AmountInWords(doc.Total, currency), "languageLocaleID", sunat.LegendAmountCode)
	writeCbc(enc, "DocumentCurrencyCode", currency)

	s.writeSupplierParty(enc, ctx)
	s.writeCustomerParty(enc, ctx)
	if doc.TotalIGV.IsPositive() {
		s.writeTaxTotal(enc, doc, currency)
	}
	s.writeLegalMonetaryTotal(enc, doc, currency)
	for i, line := range ctx.Lines {
		if line.Item == nil {
			return "", domsunat.NewValidationError(fmt.Sprintf("línea %d vacía", i+1))
		}
		s.writeInvoiceLine(enc, i+1, line, currency)
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return "", fmt.Errorf("sunat: cerrar raíz: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return "", fmt.Errorf("sunat: flush XML: %w", err)
	}
	return buf.String(), nil
}

func open(enc *xml.Encoder, name string, attrs ...xml.Attr) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func closeEl(enc *xml.Encoder, name string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func writeCbc(enc *xml.Encoder, local, value string) {
	writeElement(enc, "cbc:"+local, value)
}

func writeCbcAmount(enc *xml.Encoder, local string, value decimal.Decimal, currency string) {
	writeElement(enc, "cbc:"+local, formatDecimal(value), attr("currencyID", currency))
}

func writeCbcWithAttr(enc *xml.Encoder, local, value, attrName, attrValue string) {
	writeElement(enc, "cbc:"+local, value, attr(attrName, attrValue))
}

func writeElement(enc *xml.Encoder, name, value string, attrs ...xml.Attr) {
	open(enc, name, attrs...)
	_ = enc.EncodeToken(xml.CharData(value))
	closeEl(enc, name)
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (s *XMLBuilderService) writeSupplierParty(enc *xml.Encoder, ctx *BuildContext) {
	c := ctx.Company
	open(enc, "cac:AccountingSupplierParty")
	open(enc, "cac:Party")

	open(enc, "cac:PartyIdentification")
	writeCbcWithAttr(enc, "ID", strings.TrimSpace(c.RUC), "schemeID", sunat.IdentitySchemeRUC)
	closeEl(enc, "cac:PartyIdentification")

	if c.TradeName != "" {
		open(enc, "cac:PartyName")
		writeCbc(enc, "Name", c.TradeName)
		closeEl(enc, "cac:PartyName")
	}

	ubigeo := strings.TrimSpace(c.PostalCode)
	if ubigeo == "" {
		ubigeo = sunat.DefaultUbigeo
	}
	open(enc, "cac:PostalAddress")
	writeCbc(enc, "ID", ubigeo)
	writeCbc(enc, "StreetName", c.Address)
	open(enc, "cac:Country")
	writeCbc(enc, "IdentificationCode", sunat.CountryPeru)
	closeEl(enc, "cac:Country")
	closeEl(enc, "cac:PostalAddress")

	open(enc, "cac:PartyLegalEntity")
	writeCbc(enc, "RegistrationName", c.LegalName)
	closeEl(enc, "cac:PartyLegalEntity")

	closeEl(enc, "cac:Party")
	closeEl(enc, "cac:AccountingSupplierParty")
}

// writeCustomerParty sin cliente emite el comprador genérico (DNI 00000000, CLIENTE VARIOS).
func (s *XMLBuilderService) writeCustomerParty(enc *xml.Encoder, ctx *BuildContext) {
	scheme, number, name, address := sunat.GenericBuyerScheme, sunat.GenericBuyerNumber, sunat.GenericBuyerName, ""
	if c := ctx.Customer; c != nil {
		scheme = sunat.IdentitySchemeID(c.IdentityType)
		number = strings.TrimSpace(c.IdentityNumber)
		name = c.Name
		address = c.Address
	}

	open(enc, "cac:AccountingCustomerParty")
	open(enc, "cac:Party")
	open(enc, "cac:PartyIdentification")
	writeCbcWithAttr(enc, "ID", number, "schemeID", scheme)
	closeEl(enc, "cac:PartyIdentification")
	open(enc, "cac:PartyLegalEntity")
	writeCbc(enc, "RegistrationName", name)
	if address != "" {
		open(enc, "cac:RegistrationAddress")
		open(enc, "cac:AddressLine")
		writeCbc(enc, "Line", address)
		closeEl(enc, "cac:AddressLine")
		closeEl(enc, "cac:RegistrationAddress")
	}
	closeEl(enc, "cac:PartyLegalEntity")
	closeEl(enc, "cac:Party")
	closeEl(enc, "cac:AccountingCustomerParty")
}

func (s *XMLBuilderService) writeTaxTotal(enc *xml.Encoder, doc *entity.Document, currency string) {
	open(enc, "cac:TaxTotal")
	writeCbcAmount(enc, "TaxAmount", doc.TotalIGV, currency)
	open(enc, "cac:TaxSubtotal")
	writeCbcAmount(enc, "TaxableAmount", doc.TotalTaxed, currency)
	writeCbcAmount(enc, "TaxAmount", doc.TotalIGV, currency)
	open(enc, "cac:TaxCategory")
	writeCbc(enc, "ID", sunat.IGVCategoryID)
	open(enc, "cac:TaxScheme")
	writeCbc(enc, "ID", sunat.IGVSchemeID)
	writeCbc(enc, "Name", sunat.IGVSchemeName)
	writeCbc(enc, "TaxTypeCode", sunat.IGVTypeCode)
	closeEl(enc, "cac:TaxScheme")
	closeEl(enc, "cac:TaxCategory")
	closeEl(enc, "cac:TaxSubtotal")
	closeEl(enc, "cac:TaxTotal")
}

func (s *XMLBuilderService) writeLegalMonetaryTotal(enc *xml.Encoder, doc *entity.Document, currency string) {
	open(enc, "cac:LegalMonetaryTotal")
	writeCbcAmount(enc, "LineExtensionAmount", doc.TotalTaxed, currency)
	writeCbcAmount(enc, "TaxInclusiveAmount", doc.Total, currency)
	writeCbcAmount(enc, "PayableAmount", doc.Total, currency)
	closeEl(enc, "cac:LegalMonetaryTotal")
}

func (s *XMLBuilderService) writeInvoiceLine(enc *xml.Encoder, lineNum int, line LineForXML, currency string) {
	it := line.Item
	unitCode := sunat.UnitCode(line.UnitMeasure)
	taxType, ok := sunat.LookupTaxType(it.TaxType)
	if !ok {
		taxType, _ = sunat.LookupTaxType(sunat.TaxTypeTaxed)
	}

	open(enc, "cac:InvoiceLine")
	writeCbc(enc, "ID", strconv.Itoa(lineNum))
	writeCbcWithAttr(enc, "InvoicedQuantity", formatQuantity(it.Quantity), "unitCode", unitCode)
	// SUNAT recibe aquí el valor unitario, no el total de la línea.
	writeCbcAmount(enc, "LineExtensionAmount", it.UnitPrice, currency)

	refPrice := it.UnitPrice
	if sunat.IsTaxable(it.TaxType) {
		refPrice = it.UnitPrice.Mul(igvFactor)
	}
	open(enc, "cac:PricingReference")
	open(enc, "cac:AlternativeConditionPrice")
	writeCbcAmount(enc, "PriceAmount", refPrice, currency)
	writeCbc(enc, "PriceTypeCode", "01")
	closeEl(enc, "cac:AlternativeConditionPrice")
	closeEl(enc, "cac:PricingReference")

	if it.IGV.IsPositive() {
		open(enc, "cac:TaxTotal")
		writeCbcAmount(enc, "TaxAmount", it.IGV, currency)
		open(enc, "cac:TaxSubtotal")
		writeCbcAmount(enc, "TaxableAmount", it.Subtotal, currency)
		writeCbcAmount(enc, "TaxAmount", it.IGV, currency)
		open(enc, "cac:TaxCategory")
		writeCbc(enc, "ID", taxType.CategoryID)
		if taxType.Percent != "" {
			writeCbc(enc, "Percent", taxType.Percent)
		}
		writeCbc(enc, "TaxExemptionReasonCode", taxType.Code)
		open(enc, "cac:TaxScheme")
		writeCbc(enc, "ID", taxType.SchemeID)
		writeCbc(enc, "Name", taxType.SchemeName)
		writeCbc(enc, "TaxTypeCode", taxType.TypeCode)
		closeEl(enc, "cac:TaxScheme")
		closeEl(enc, "cac:TaxCategory")
		closeEl(enc, "cac:TaxSubtotal")
		closeEl(enc, "cac:TaxTotal")
	}

	open(enc, "cac:Item")
	writeCbc(enc, "Description", it.Description)
	closeEl(enc, "cac:Item")

	open(enc, "cac:Price")
	writeCbcAmount(enc, "PriceAmount", it.UnitPrice, currency)
	closeEl(enc, "cac:Price")

	closeEl(enc, "cac:InvoiceLine")
}

// formatDecimal montos con 2 decimales fijos.
func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatQuantity cantidades hasta 10 decimales, sin ceros de relleno.
func formatQuantity(d decimal.Decimal) string {
	return d.Round(10).String()
}
