package sunat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

// ValidationError faltan datos obligatorios del emisor, adquirente o totales.
// Aborta el pipeline antes de producir artefactos.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validación SUNAT: " + strings.Join(e.Problems, "; ")
}

// Unwrap permite errors.Is(err, domain.ErrInvalidInput).
func (e *ValidationError) Unwrap() error { return domain.ErrInvalidInput }

// NewValidationError crea un ValidationError con uno o más problemas.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// CertificateError certificado ilegible, contraseña incorrecta o X.509 inválido.
type CertificateError struct {
	Reason string
	Err    error
}

func (e *CertificateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certificado: %s: %v", e.Reason, e.Err)
	}
	return "certificado: " + e.Reason
}

func (e *CertificateError) Unwrap() error { return e.Err }

// SigningError la firma no pudo generarse o no quedó embebida en el XML.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("firma: %s: %v", e.Reason, e.Err)
	}
	return "firma: " + e.Reason
}

func (e *SigningError) Unwrap() error { return e.Err }

// TransportError fallo de red/timeout al llamar a SUNAT. TLS indica un problema de certificado/SSL.
type TransportError struct {
	Err error
	TLS bool
}

func (e *TransportError) Error() string {
	if e.TLS {
		return fmt.Sprintf("transporte (TLS): %v", e.Err)
	}
	return fmt.Sprintf("transporte: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigurationError configuración del emisor incompleta (p. ej. sin credenciales SOL).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuración: " + e.Reason }

// IsValidation, IsCertificate... atajos sobre errors.As.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

func IsCertificate(err error) bool {
	var e *CertificateError
	return errors.As(err, &e)
}

func IsSigning(err error) bool {
	var e *SigningError
	return errors.As(err, &e)
}

// AsTransport devuelve el TransportError si err lo contiene.
func AsTransport(err error) (*TransportError, bool) {
	var e *TransportError
	ok := errors.As(err, &e)
	return e, ok
}
