package sunat_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
)

var fixedClock = func() time.Time { return time.Date(2026, 3, 15, 10, 30, 45, 0, time.UTC) }

func testCompany() *entity.Company {
	return &entity.Company{
		ID: "c-1", RUC: "20131312955", LegalName: "EMPRESA DEMO S.A.C.", TradeName: "DEMO & CIA",
		PostalCode: "150101", Address: "AV. LOS OLIVOS 123",
	}
}

func testItem(qty, price, taxType, desc string) *entity.DocumentItem {
	it := &entity.DocumentItem{
		Description: desc,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		TaxType:     taxType,
	}
	domsunat.ApplyLine(it)
	return it
}

func buildCtx(docType, series string, customer *entity.Customer, items ...*entity.DocumentItem) *infrasunat.BuildContext {
	doc := &entity.Document{
		ID: "d-1", CompanyID: "c-1", DocumentType: docType, Series: series, Number: 42,
		IssueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), Currency: "PEN",
		Status: entity.DocumentStatusPending,
	}
	domsunat.ApplyTotals(doc, items)
	lines := make([]infrasunat.LineForXML, len(items))
	for i, it := range items {
		lines[i] = infrasunat.LineForXML{Item: it, UnitMeasure: "UND"}
	}
	return &infrasunat.BuildContext{Document: doc, Company: testCompany(), Customer: customer, Lines: lines}
}

func parse(t *testing.T, xml string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	root := doc.Root()
	require.NotNil(t, root)
	return root
}

func text(t *testing.T, root *etree.Element, path string) string {
	t.Helper()
	el := root.FindElement(path)
	require.NotNil(t, el, "no existe %s", path)
	return el.Text()
}

// ─── Round-trip ────────────────────────────────────────────────────────────

func TestBuild_RoundTripIDFechaYLineas(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	ctx := buildCtx("01", "F001", nil,
		testItem("1", "100.00", "10", "Laptop"),
		testItem("2", "25.50", "20", "Libro"),
		testItem("3", "1.00", "30", "Bolsa"),
	)

	out, err := b.Build(ctx)
	require.NoError(t, err)

	root := parse(t, out)
	assert.Equal(t, "Invoice", root.Tag)
	assert.Equal(t, "F001-00000042", text(t, root, "./cbc:ID"))
	assert.Equal(t, "2026-03-15", text(t, root, "./cbc:IssueDate"))
	assert.Equal(t, "10:30:45", text(t, root, "./cbc:IssueTime"))
	assert.Len(t, root.SelectElements("InvoiceLine"), 3)
	assert.Equal(t, "01", text(t, root, "./cbc:InvoiceTypeCode"))
	assert.Equal(t, "2.1", text(t, root, "./cbc:UBLVersionID"))
	assert.Equal(t, "2.0", text(t, root, "./cbc:CustomizationID"))
	assert.Equal(t, "PEN", text(t, root, "./cbc:DocumentCurrencyCode"))
}

func TestBuild_ExtensionContentVacioPrimero(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	out, err := b.Build(buildCtx("01", "F001", nil, testItem("1", "100", "10", "X")))
	require.NoError(t, err)

	root := parse(t, out)
	first := root.ChildElements()[0]
	assert.Equal(t, "UBLExtensions", first.Tag)
	content := root.FindElement("./ext:UBLExtensions/ext:UBLExtension/ext:ExtensionContent")
	require.NotNil(t, content)
	assert.Empty(t, content.ChildElements())
}

func TestBuild_LeyendaYTotales(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	out, err := b.Build(buildCtx("01", "F001", nil, testItem("1", "100.00", "10", "Servicio")))
	require.NoError(t, err)
	root := parse(t, out)

	note := root.FindElement("./cbc:Note")
	require.NotNil(t, note)
	assert.Equal(t, "1000", note.SelectAttrValue("languageLocaleID", ""))
	assert.Equal(t, "CIENTO DIECIOCHO CON 00/100 SOLES", note.Text())

	assert.Equal(t, "18.00", text(t, root, "./cac:TaxTotal/cbc:TaxAmount"))
	assert.Equal(t, "100.00", text(t, root, "./cac:TaxTotal/cac:TaxSubtotal/cbc:TaxableAmount"))
	assert.Equal(t, "S", text(t, root, "./cac:TaxTotal/cac:TaxSubtotal/cac:TaxCategory/cbc:ID"))
	assert.Equal(t, "1000", text(t, root, "./cac:TaxTotal/cac:TaxSubtotal/cac:TaxCategory/cac:TaxScheme/cbc:ID"))
	assert.Equal(t, "IGV", text(t, root, "./cac:TaxTotal/cac:TaxSubtotal/cac:TaxCategory/cac:TaxScheme/cbc:Name"))
	assert.Equal(t, "VAT", text(t, root, "./cac:TaxTotal/cac:TaxSubtotal/cac:TaxCategory/cac:TaxScheme/cbc:TaxTypeCode"))

	assert.Equal(t, "100.00", text(t, root, "./cac:LegalMonetaryTotal/cbc:LineExtensionAmount"))
	assert.Equal(t, "118.00", text(t, root, "./cac:LegalMonetaryTotal/cbc:TaxInclusiveAmount"))
	assert.Equal(t, "118.00", text(t, root, "./cac:LegalMonetaryTotal/cbc:PayableAmount"))
	amount := root.FindElement("./cac:LegalMonetaryTotal/cbc:PayableAmount")
	assert.Equal(t, "PEN", amount.SelectAttrValue("currencyID", ""))
}

func TestBuild_SinIGVOmiteTaxTotal(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	out, err := b.Build(buildCtx("03", "B001", nil, testItem("1", "50", "20", "Exonerado")))
	require.NoError(t, err)
	root := parse(t, out)

	assert.Nil(t, root.FindElement("./cac:TaxTotal"))
	assert.Nil(t, root.FindElement("./cac:InvoiceLine/cac:TaxTotal"))
}

// ─── Partes ────────────────────────────────────────────────────────────────

func TestBuild_EmisorSchemeRUCYUbigeo(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	ctx := buildCtx("01", "F001", nil, testItem("1", "10", "10", "X"))
	ctx.Company.PostalCode = ""

	out, err := b.Build(ctx)
	require.NoError(t, err)
	root := parse(t, out)

	id := root.FindElement("./cac:AccountingSupplierParty/cac:Party/cac:PartyIdentification/cbc:ID")
	require.NotNil(t, id)
	assert.Equal(t, "6", id.SelectAttrValue("schemeID", ""))
	assert.Equal(t, "20131312955", id.Text())
	assert.Equal(t, "DEMO & CIA", text(t, root, "./cac:AccountingSupplierParty/cac:Party/cac:PartyName/cbc:Name"))
	assert.Equal(t, "000000", text(t, root, "./cac:AccountingSupplierParty/cac:Party/cac:PostalAddress/cbc:ID"))
	assert.Equal(t, "PE", text(t, root, "./cac:AccountingSupplierParty/cac:Party/cac:PostalAddress/cac:Country/cbc:IdentificationCode"))
	assert.Equal(t, "EMPRESA DEMO S.A.C.", text(t, root, "./cac:AccountingSupplierParty/cac:Party/cac:PartyLegalEntity/cbc:RegistrationName"))
}

func TestBuild_ClienteRUCEnFactura(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	customer := &entity.Customer{IdentityType: "6", IdentityNumber: "20100070970", Name: "CLIENTE <MAYORISTA> S.A."}
	out, err := b.Build(buildCtx("01", "F001", customer, testItem("1", "10", "10", "X")))
	require.NoError(t, err)
	root := parse(t, out)

	id := root.FindElement("./cac:AccountingCustomerParty/cac:Party/cac:PartyIdentification/cbc:ID")
	require.NotNil(t, id)
	assert.Equal(t, "6", id.SelectAttrValue("schemeID", ""))
	assert.Equal(t, "20100070970", id.Text())
	assert.Equal(t, "CLIENTE <MAYORISTA> S.A.", text(t, root, "./cac:AccountingCustomerParty/cac:Party/cac:PartyLegalEntity/cbc:RegistrationName"))
	assert.Contains(t, out, "CLIENTE &lt;MAYORISTA&gt; S.A.")
}

func TestBuild_BoletaSinClienteCompradorGenerico(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	out, err := b.Build(buildCtx("03", "B001", nil, testItem("1", "10", "10", "X")))
	require.NoError(t, err)
	root := parse(t, out)

	id := root.FindElement("./cac:AccountingCustomerParty/cac:Party/cac:PartyIdentification/cbc:ID")
	require.NotNil(t, id)
	assert.Equal(t, "1", id.SelectAttrValue("schemeID", ""))
	assert.Equal(t, "00000000", id.Text())
	assert.Equal(t, "CLIENTE VARIOS", text(t, root, "./cac:AccountingCustomerParty/cac:Party/cac:PartyLegalEntity/cbc:RegistrationName"))
}

func TestBuild_TipoIdentidadDesconocido(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	customer := &entity.Customer{IdentityType: "X", IdentityNumber: "AB123", Name: "NO DOMICILIADO"}
	out, err := b.Build(buildCtx("01", "F001", customer, testItem("1", "10", "40", "X")))
	require.NoError(t, err)
	root := parse(t, out)

	id := root.FindElement("./cac:AccountingCustomerParty/cac:Party/cac:PartyIdentification/cbc:ID")
	assert.Equal(t, "0", id.SelectAttrValue("schemeID", ""))
}

// ─── Líneas ────────────────────────────────────────────────────────────────

func TestBuild_LineaGravada(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	out, err := b.Build(buildCtx("01", "F001", nil, testItem("2", "50.00", "10", "Teclado")))
	require.NoError(t, err)
	root := parse(t, out)

	line := root.FindElement("./cac:InvoiceLine")
	require.NotNil(t, line)
	assert.Equal(t, "1", text(t, line, "./cbc:ID"))
	qty := line.FindElement("./cbc:InvoicedQuantity")
	assert.Equal(t, "2", qty.Text())
	assert.Equal(t, "NIU", qty.SelectAttrValue("unitCode", ""))
	assert.Equal(t, "50.00", text(t, line, "./cbc:LineExtensionAmount"))
	assert.Equal(t, "59.00", text(t, line, "./cac:PricingReference/cac:AlternativeConditionPrice/cbc:PriceAmount"))
	assert.Equal(t, "01", text(t, line, "./cac:PricingReference/cac:AlternativeConditionPrice/cbc:PriceTypeCode"))
	assert.Equal(t, "18.00", text(t, line, "./cac:TaxTotal/cbc:TaxAmount"))
	assert.Equal(t, "100.00", text(t, line, "./cac:TaxTotal/cac:TaxSubtotal/cbc:TaxableAmount"))
	assert.Equal(t, "18.00", text(t, line, "./cac:TaxTotal/cac:TaxSubtotal/cac:TaxCategory/cbc:Percent"))
	assert.Equal(t, "Teclado", text(t, line, "./cac:Item/cbc:Description"))
	assert.Equal(t, "50.00", text(t, line, "./cac:Price/cbc:PriceAmount"))
}

func TestBuild_LineaExoneradaSinTaxTotalYPrecioSinIGV(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	ctx := buildCtx("01", "F001", nil, testItem("1", "80.00", "20", "Libro"))
	ctx.Lines[0].UnitMeasure = "caja"
	out, err := b.Build(ctx)
	require.NoError(t, err)
	root := parse(t, out)

	line := root.FindElement("./cac:InvoiceLine")
	assert.Equal(t, "BX", line.FindElement("./cbc:InvoicedQuantity").SelectAttrValue("unitCode", ""))
	assert.Equal(t, "80.00", text(t, line, "./cac:PricingReference/cac:AlternativeConditionPrice/cbc:PriceAmount"))
	assert.Nil(t, line.FindElement("./cac:TaxTotal"))
}

func TestBuild_OrdenDeLineas(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN").WithClock(fixedClock)
	out, err := b.Build(buildCtx("01", "F001", nil,
		testItem("1", "1", "10", "primero"),
		testItem("1", "2", "10", "segundo"),
	))
	require.NoError(t, err)
	root := parse(t, out)

	lines := root.SelectElements("InvoiceLine")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", text(t, lines[0], "./cbc:ID"))
	assert.Equal(t, "primero", text(t, lines[0], "./cac:Item/cbc:Description"))
	assert.Equal(t, "2", text(t, lines[1], "./cbc:ID"))
	assert.Equal(t, "segundo", text(t, lines[1], "./cac:Item/cbc:Description"))
}

// ─── Precondiciones ────────────────────────────────────────────────────────

func TestBuild_EmisorIncompleto(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("PEN")
	ctx := buildCtx("01", "F001", nil, testItem("1", "10", "10", "X"))
	ctx.Company.RUC = ""
	ctx.Company.LegalName = " "

	_, err := b.Build(ctx)
	require.Error(t, err)
	assert.True(t, domsunat.IsValidation(err))
}

func TestBuild_MonedaPorDefecto(t *testing.T) {
	b := infrasunat.NewXMLBuilderService("USD").WithClock(fixedClock)
	ctx := buildCtx("01", "F001", nil, testItem("1", "10", "10", "X"))
	ctx.Document.Currency = ""

	out, err := b.Build(ctx)
	require.NoError(t, err)
	root := parse(t, out)
	assert.Equal(t, "USD", text(t, root, "./cbc:DocumentCurrencyCode"))
	assert.Contains(t, text(t, root, "./cbc:Note"), "DÓLARES AMERICANOS")
}
