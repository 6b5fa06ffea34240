package entity

import "time"

// Company emisor de comprobantes electrónicos (contribuyente con RUC).
type Company struct {
	ID                  string
	RUC                 string // 11 dígitos
	LegalName           string // razón social
	TradeName           string // nombre comercial (opcional)
	PostalCode          string // ubigeo INEI de 6 dígitos
	Address             string
	SolUsername         string // usuario secundario SOL
	SolPassword         string
	Certificate         string // PEM, ruta a .p12 o PKCS#12 en base64
	CertificatePassword string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasCertificate indica si el emisor tiene un certificado digital configurado.
func (c *Company) HasCertificate() bool {
	return c != nil && c.Certificate != ""
}

// HasSolCredentials indica si el emisor tiene usuario y clave SOL.
func (c *Company) HasSolCredentials() bool {
	return c != nil && c.SolUsername != "" && c.SolPassword != ""
}
