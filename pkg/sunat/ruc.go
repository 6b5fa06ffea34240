package sunat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// pesos del módulo 11 de SUNAT, aplicados a los 10 primeros dígitos del RUC.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// prefijos válidos: persona natural (10, 15, 17) y persona jurídica (20).
var rucPrefixes = map[string]bool{"10": true, "15": true, "17": true, "20": true}

// ValidateRUC verifica longitud, prefijo y dígito verificador de un RUC de 11 dígitos.
func ValidateRUC(ruc string) error {
	ruc = strings.TrimSpace(ruc)
	if len(ruc) != 11 {
		return fmt.Errorf("sunat: RUC debe tener 11 dígitos, se recibieron %d", len(ruc))
	}
	for _, r := range ruc {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("sunat: RUC contiene caracteres no numéricos: %q", ruc)
		}
	}
	if !rucPrefixes[ruc[:2]] {
		return fmt.Errorf("sunat: prefijo de RUC inválido: %s", ruc[:2])
	}
	expected, err := ComputeRUCCheckDigit(ruc[:10])
	if err != nil {
		return err
	}
	if ruc[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, ruc[10])
	}
	return nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros dígitos.
func ComputeRUCCheckDigit(base string) (byte, error) {
	if len(base) < 10 {
		return 0, fmt.Errorf("sunat: se requieren 10 dígitos para calcular el verificador, se recibieron %d", len(base))
	}
	var sum int
	for i := 0; i < 10; i++ {
		c := base[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("sunat: dígito inválido en posición %d", i+1)
		}
		sum += int(c-'0') * rucWeights[i]
	}
	d := 11 - sum%11
	switch d {
	case 10:
		d = 0
	case 11:
		d = 1
	}
	return byte('0' + d), nil
}

var seriesPattern = regexp.MustCompile(`^[FB][A-Z0-9]{3}$`)

// ValidateSeries exige F### para facturas y sus notas, B### para boletas y sus notas.
func ValidateSeries(documentType, series string) error {
	series = strings.ToUpper(strings.TrimSpace(series))
	if !seriesPattern.MatchString(series) {
		return fmt.Errorf("sunat: serie %q no cumple el formato [F|B] + 3 caracteres alfanuméricos", series)
	}
	switch documentType {
	case DocumentTypeInvoice:
		if series[0] != 'F' {
			return fmt.Errorf("sunat: la serie de una factura debe iniciar con F, se recibió %q", series)
		}
	case DocumentTypeBoleta:
		if series[0] != 'B' {
			return fmt.Errorf("sunat: la serie de una boleta debe iniciar con B, se recibió %q", series)
		}
	case DocumentTypeCreditNote, DocumentTypeDebitNote:
	default:
		return fmt.Errorf("sunat: tipo de documento no soportado: %q", documentType)
	}
	return nil
}

// DocumentID arma el identificador del comprobante: {serie}-{correlativo de 8 dígitos}.
func DocumentID(series string, number int64) string {
	return fmt.Sprintf("%s-%08d", series, number)
}

// FileName nombre de archivo SUNAT sin extensión: {RUC}-{tipo}-{serie}-{correlativo}.
func FileName(ruc, documentType, series string, number int64) string {
	return fmt.Sprintf("%s-%s-%s", ruc, documentType, DocumentID(series, number))
}
