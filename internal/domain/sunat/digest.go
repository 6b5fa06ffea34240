package sunat

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	betweenTags = regexp.MustCompile(`>\s+<`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// NormalizeXML quita espacios entre etiquetas, colapsa el resto a un espacio y recorta.
func NormalizeXML(xml string) string {
	s := betweenTags.ReplaceAllString(xml, "><")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DigestXML hash SHA-256 (hex) del XML normalizado. Es el campo hash del comprobante,
// distinto del DigestValue de la firma XML-DSIG.
func DigestXML(xml string) string {
	sum := sha256.Sum256([]byte(NormalizeXML(xml)))
	return hex.EncodeToString(sum[:])
}
