package entity

import "time"

// Códigos de respuesta registrados fuera de los devueltos por SUNAT.
const (
	ResponseCodeAccepted = "0"
	ResponseCodeError    = "ERROR"
	ResponseCodePending  = "PENDING"
)

// SunatResponse respuesta de SUNAT (o simulada) asociada a un comprobante; se conserva la última.
type SunatResponse struct {
	ID         string
	DocumentID string
	Code       string
	Message    string
	CDRXML     string // constancia de recepción (XML)
	CDRZip     []byte // constancia de recepción tal como llegó en ZIP
	CreatedAt  time.Time
}
