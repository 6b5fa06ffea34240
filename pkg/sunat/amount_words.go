package sunat

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upperES = cases.Upper(language.Spanish)

var currencyNames = map[string]string{
	CurrencyPEN: "soles",
	CurrencyUSD: "dólares americanos",
	"EUR":       "euros",
}

var unitsWords = [...]string{
	"cero", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
	"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve",
	"veinte", "veintiuno", "veintidós", "veintitrés", "veinticuatro", "veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
}

var tensWords = [...]string{"", "", "", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa"}

var hundredsWords = [...]string{"", "ciento", "doscientos", "trescientos", "cuatrocientos", "quinientos", "seiscientos", "setecientos", "ochocientos", "novecientos"}

// AmountInWords expresa un importe en letras para la leyenda 1000 del comprobante.
// Ej: 118.00 PEN -> "CIENTO DIECIOCHO CON 00/100 SOLES".
// Los céntimos se redondean a 2 decimales; importes negativos usan su valor absoluto.
// Desde 10^30 la parte entera se escribe en cifras.
func AmountInWords(amount decimal.Decimal, currency string) string {
	amount = amount.Abs().Round(2)
	integer := amount.Truncate(0)
	cents := amount.Sub(integer).Mul(decimal.NewFromInt(100)).IntPart()

	name, ok := currencyNames[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		name = strings.TrimSpace(currency)
	}
	legend := fmt.Sprintf("%s con %02d/100 %s", integerToWords(integer.String()), cents, name)
	return strings.TrimSpace(upperES.String(legend))
}

// Escala larga: cada grupo de seis cifras sube un orden (millón, billón, ...).
var scaleWords = [...][2]string{
	{"", ""},
	{"millón", "millones"},
	{"billón", "billones"},
	{"trillón", "trillones"},
	{"cuatrillón", "cuatrillones"},
}

// integerToWords convierte la representación decimal de un entero no negativo.
func integerToWords(digits string) string {
	groups := splitGroups(digits)
	if len(groups) > len(scaleWords) {
		return digits
	}
	var parts []string
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		switch {
		case g == 0:
			continue
		case i == 0:
			parts = append(parts, thousandsToWords(g))
		case g == 1:
			parts = append(parts, "un "+scaleWords[i][0])
		default:
			parts = append(parts, apocope(thousandsToWords(g))+" "+scaleWords[i][1])
		}
	}
	if len(parts) == 0 {
		return unitsWords[0]
	}
	return strings.Join(parts, " ")
}

// splitGroups parte las cifras en grupos de seis, del menos al más significativo.
func splitGroups(digits string) []int64 {
	var groups []int64
	for end := len(digits); end > 0; end -= 6 {
		start := max(end-6, 0)
		var g int64
		for _, c := range digits[start:end] {
			g = g*10 + int64(c-'0')
		}
		groups = append(groups, g)
	}
	return groups
}

// thousandsToWords cubre 1..999999.
func thousandsToWords(n int64) string {
	thousands, rest := n/1000, n%1000
	var parts []string
	switch {
	case thousands == 1:
		parts = append(parts, "mil")
	case thousands > 1:
		parts = append(parts, apocope(belowThousand(thousands))+" mil")
	}
	if rest > 0 {
		parts = append(parts, belowThousand(rest))
	}
	return strings.Join(parts, " ")
}

func belowThousand(n int64) string {
	if n == 100 {
		return "cien"
	}
	hundreds, rest := n/100, n%100
	var parts []string
	if hundreds > 0 {
		parts = append(parts, hundredsWords[hundreds])
	}
	if rest > 0 {
		parts = append(parts, belowHundred(rest))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64) string {
	if n < 30 {
		return unitsWords[n]
	}
	tens, unit := n/10, n%10
	if unit == 0 {
		return tensWords[tens]
	}
	return tensWords[tens] + " y " + unitsWords[unit]
}

// apocope ajusta "uno" delante de mil/millones: "veintiuno mil" -> "veintiún mil".
func apocope(words string) string {
	switch {
	case strings.HasSuffix(words, "veintiuno"):
		return strings.TrimSuffix(words, "veintiuno") + "veintiún"
	case strings.HasSuffix(words, "uno"):
		return strings.TrimSuffix(words, "uno") + "un"
	}
	return words
}
