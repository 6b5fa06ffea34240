package dto

import "time"

// CreateCompanyRequest alta de un emisor. Las credenciales SOL y el certificado se cargan después.
type CreateCompanyRequest struct {
	RUC        string `json:"ruc" validate:"required,len=11,numeric"`
	LegalName  string `json:"legal_name" validate:"required,max=255"`
	TradeName  string `json:"trade_name,omitempty" validate:"max=255"`
	PostalCode string `json:"postal_code,omitempty" validate:"omitempty,len=6,numeric"`
	Address    string `json:"address,omitempty" validate:"max=500"`
}

// UpdateCompanyRequest modifica datos del emisor. Campos nil no se tocan.
type UpdateCompanyRequest struct {
	LegalName  *string `json:"legal_name,omitempty" validate:"omitempty,max=255"`
	TradeName  *string `json:"trade_name,omitempty" validate:"omitempty,max=255"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,len=6,numeric"`
	Address    *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// SunatCredentialsRequest usuario secundario SOL y certificado de firma.
// certificate acepta PEM, ruta a .p12/.pfx o PKCS#12 en base64.
type SunatCredentialsRequest struct {
	SolUsername         string `json:"sol_username" validate:"required,max=64"`
	SolPassword         string `json:"sol_password" validate:"required,max=128"`
	Certificate         string `json:"certificate,omitempty"`
	CertificatePassword string `json:"certificate_password,omitempty" validate:"max=255"`
}

// CompanyResponse emisor en respuestas. Nunca expone secretos.
type CompanyResponse struct {
	ID                string           `json:"id"`
	RUC               string           `json:"ruc"`
	LegalName         string           `json:"legal_name"`
	TradeName         string           `json:"trade_name,omitempty"`
	PostalCode        string           `json:"postal_code,omitempty"`
	Address           string           `json:"address,omitempty"`
	HasSolCredentials bool             `json:"has_sol_credentials"`
	HasCertificate    bool             `json:"has_certificate"`
	Certificate       *CertificateInfo `json:"certificate_info,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// CertificateInfo datos públicos del certificado cargado.
type CertificateInfo struct {
	Subject  string    `json:"subject"`
	Serial   string    `json:"serial"`
	NotAfter time.Time `json:"not_after"`
}
