// Package sunat contiene catálogos y reglas alineados a la factura electrónica SUNAT (Perú), UBL 2.1.
package sunat

import "strings"

// =============================================================================
// Catálogo 01 - Tipos de documento
// =============================================================================

const (
	DocumentTypeInvoice    = "01" // Factura
	DocumentTypeBoleta     = "03" // Boleta de venta
	DocumentTypeCreditNote = "07" // Nota de crédito
	DocumentTypeDebitNote  = "08" // Nota de débito
)

// ValidDocumentTypes tipos de comprobante aceptados por el pipeline.
var ValidDocumentTypes = map[string]bool{
	DocumentTypeInvoice:    true,
	DocumentTypeBoleta:     true,
	DocumentTypeCreditNote: true,
	DocumentTypeDebitNote:  true,
}

// =============================================================================
// Catálogo 06 - Tipos de documento de identidad
// =============================================================================

const (
	IdentitySchemeNoDocument = "0" // Sin documento / no domiciliado
	IdentitySchemeDNI        = "1" // DNI
	IdentitySchemeForeignID  = "4" // Carnet de extranjería
	IdentitySchemeRUC        = "6" // RUC
	IdentitySchemePassport   = "7" // Pasaporte
)

// Comprador genérico para boletas sin cliente identificado.
const (
	GenericBuyerScheme = IdentitySchemeDNI
	GenericBuyerNumber = "00000000"
	GenericBuyerName   = "CLIENTE VARIOS"
)

// identitySchemes acepta tanto el código de catálogo como el nombre interno usado en el registro de clientes.
var identitySchemes = map[string]string{
	"1": IdentitySchemeDNI, "DNI": IdentitySchemeDNI,
	"6": IdentitySchemeRUC, "RUC": IdentitySchemeRUC,
	"4": IdentitySchemeForeignID, "CE": IdentitySchemeForeignID, "CARNET": IdentitySchemeForeignID,
	"7": IdentitySchemePassport, "PASAPORTE": IdentitySchemePassport, "PASSPORT": IdentitySchemePassport,
}

// IdentitySchemeID resuelve el schemeID (catálogo 06) para un tipo de documento de identidad.
// Cualquier código no reconocido se emite como "0".
func IdentitySchemeID(identityType string) string {
	if id, ok := identitySchemes[strings.ToUpper(strings.TrimSpace(identityType))]; ok {
		return id
	}
	return IdentitySchemeNoDocument
}

// =============================================================================
// Catálogo 07 - Tipos de afectación del IGV
// =============================================================================

const (
	TaxTypeTaxed      = "10" // Gravado - operación onerosa
	TaxTypeExempt     = "20" // Exonerado - operación onerosa
	TaxTypeUnaffected = "30" // Inafecto - operación onerosa
	TaxTypeExport     = "40" // Exportación
)

// TaxType describe el esquema tributario de una afectación (catálogos 05 y 07).
type TaxType struct {
	Code       string // código interno (catálogo 07)
	CategoryID string // cac:TaxCategory/cbc:ID
	SchemeID   string // cac:TaxScheme/cbc:ID
	SchemeName string // cac:TaxScheme/cbc:Name
	TypeCode   string // cac:TaxScheme/cbc:TaxTypeCode
	Percent    string // vacío si no se muestra porcentaje
}

var taxTypes = map[string]TaxType{
	TaxTypeTaxed:      {Code: TaxTypeTaxed, CategoryID: "S", SchemeID: "1000", SchemeName: "IGV", TypeCode: "VAT", Percent: "18.00"},
	TaxTypeExempt:     {Code: TaxTypeExempt, CategoryID: "E", SchemeID: "9997", SchemeName: "EXO", TypeCode: "VAT"},
	TaxTypeUnaffected: {Code: TaxTypeUnaffected, CategoryID: "O", SchemeID: "9998", SchemeName: "INA", TypeCode: "FRE"},
	TaxTypeExport:     {Code: TaxTypeExport, CategoryID: "G", SchemeID: "9995", SchemeName: "EXP", TypeCode: "FRE"},
}

// LookupTaxType devuelve el esquema para el código de afectación.
func LookupTaxType(code string) (TaxType, bool) {
	t, ok := taxTypes[strings.TrimSpace(code)]
	return t, ok
}

// IsTaxable indica si la afectación genera IGV.
func IsTaxable(code string) bool {
	return strings.TrimSpace(code) == TaxTypeTaxed
}

// IGV a nivel de documento (catálogo 05).
const (
	IGVCategoryID = "S"
	IGVSchemeID   = "1000"
	IGVSchemeName = "IGV"
	IGVTypeCode   = "VAT"
)

// =============================================================================
// Catálogo 03 - Unidades de medida (UN/ECE rec 20)
// =============================================================================

const (
	UnitUnit     = "NIU" // Unidad (bienes)
	UnitService  = "ZZ"  // Unidad (servicios)
	UnitKilogram = "KGM"
	UnitGram     = "GRM"
	UnitLitre    = "LTR"
	UnitMetre    = "MTR"
	UnitBox      = "BX"
	UnitDozen    = "DZN"
	UnitHour     = "HUR"
	UnitPackage  = "PK"
	UnitGallon   = "GLL"
	UnitThousand = "MIL"
)

var unitCodes = map[string]string{
	"NIU": UnitUnit, "UND": UnitUnit, "UNIDAD": UnitUnit, "UNIT": UnitUnit, "U": UnitUnit,
	"ZZ": UnitService, "SERVICIO": UnitService,
	"KGM": UnitKilogram, "KG": UnitKilogram, "KILOGRAMO": UnitKilogram,
	"GRM": UnitGram, "GR": UnitGram, "G": UnitGram, "GRAMO": UnitGram,
	"LTR": UnitLitre, "LT": UnitLitre, "L": UnitLitre, "LITRO": UnitLitre,
	"MTR": UnitMetre, "M": UnitMetre, "METRO": UnitMetre,
	"BX": UnitBox, "CJ": UnitBox, "CAJA": UnitBox,
	"DZN": UnitDozen, "DOC": UnitDozen, "DOCENA": UnitDozen,
	"HUR": UnitHour, "HR": UnitHour, "HORA": UnitHour,
	"PK": UnitPackage, "PAQ": UnitPackage, "PAQUETE": UnitPackage,
	"GLL": UnitGallon, "GLN": UnitGallon, "GALON": UnitGallon,
	"MIL": UnitThousand, "MILLAR": UnitThousand,
}

// UnitCode traduce la unidad de medida del producto a UN/ECE; si no está mapeada usa NIU.
func UnitCode(unitMeasure string) string {
	if code, ok := unitCodes[strings.ToUpper(strings.TrimSpace(unitMeasure))]; ok {
		return code
	}
	return UnitUnit
}

// =============================================================================
// Constantes UBL / SUNAT
// =============================================================================

const (
	UBLVersion       = "2.1"
	CustomizationID  = "2.0"
	LegendAmountCode = "1000" // Leyenda: monto expresado en letras
	CountryPeru      = "PE"
	DefaultUbigeo    = "000000"
	CurrencyPEN      = "PEN"
	CurrencyUSD      = "USD"
)
