package sunat

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// SubmitRequest comprobante firmado listo para enviar.
type SubmitRequest struct {
	FileName  string // {RUC}-{tipo}-{serie}-{número}.xml
	SignedXML string
	Username  string // usuario SOL
	Password  string // clave SOL
}

// RawResponse respuesta HTTP sin interpretar; la interpretación está en ParseResponse.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Submitter define el puerto de salida para el envío de comprobantes a SUNAT.
// La implementación concreta usa HTTP+JSON; para tests se inyecta un mock.
type Submitter interface {
	// Ready devuelve *domsunat.ConfigurationError si el cliente no puede enviar (p. ej. sin endpoint).
	Ready() error
	// Submit devuelve la respuesta de SUNAT o un *domsunat.TransportError si la llamada no se completó.
	Submit(ctx context.Context, req SubmitRequest) (*RawResponse, error)
}

// ── Implementación HTTP ────────────────────────────────────────────────────────

const maxResponseBytes = 4 << 20 // 4 MB (el CDR viene en base64)

type submitPayload struct {
	FileName    string `json:"fileName"`
	ContentFile string `json:"contentFile"` // XML firmado en Base64
}

// HTTPSubmitter implementa Submitter con un POST JSON autenticado con las credenciales SOL.
type HTTPSubmitter struct {
	httpClient *http.Client
	endpoint   string
}

// NewHTTPSubmitter construye el cliente con el timeout de la llamada (30 s por defecto).
func NewHTTPSubmitter(endpoint string, timeout time.Duration) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSubmitter{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
	}
}

// WithHTTPClient reemplaza el cliente HTTP (transporte propio, CA de pruebas).
func (c *HTTPSubmitter) WithHTTPClient(hc *http.Client) *HTTPSubmitter {
	c.httpClient = hc
	return c
}

// Endpoint URL a la que se envían los comprobantes.
func (c *HTTPSubmitter) Endpoint() string { return c.endpoint }

// Ready comprueba que haya endpoint configurado.
func (c *HTTPSubmitter) Ready() error {
	if c.endpoint == "" {
		return &domsunat.ConfigurationError{Reason: "endpoint SUNAT no configurado"}
	}
	return nil
}

// Submit envía el XML firmado. Una respuesta HTTP no-2xx no es error: se devuelve para ParseResponse.
func (c *HTTPSubmitter) Submit(ctx context.Context, in SubmitRequest) (*RawResponse, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(submitPayload{
		FileName:    in.FileName,
		ContentFile: base64.StdEncoding.EncodeToString([]byte(in.SignedXML)),
	})
	if err != nil {
		return nil, fmt.Errorf("sunat: serializar payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sunat: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(in.Username, in.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("timeout o cancelación: %w", err)
		}
		return nil, &domsunat.TransportError{Err: err, TLS: IsTLSError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domsunat.TransportError{Err: fmt.Errorf("leer respuesta: %w", err)}
	}
	return &RawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

var tlsKeywords = []string{"certificate", "ssl", "tls", "x509"}

// IsTLSError indica si el fallo de red es de TLS/certificado (por tipo o por el texto del error).
func IsTLSError(err error) bool {
	if err == nil {
		return false
	}
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		authorityEr x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	if errors.As(err, &verifyErr) || errors.As(err, &recordErr) || errors.As(err, &authorityEr) ||
		errors.As(err, &hostErr) || errors.As(err, &invalidErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range tlsKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
