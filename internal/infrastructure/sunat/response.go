package sunat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

const maxDiagnosticLen = 500

// ParsedResponse resultado interpretado del envío: estado final del comprobante y registro de respuesta.
type ParsedResponse struct {
	Status  string // SENT, ACCEPTED o REJECTED
	Code    string
	Message string
	CDRXML  string
	CDRZip  []byte
}

type submitResponseBody struct {
	StatusCode          json.RawMessage `json:"statusCode"`
	StatusMessage       string          `json:"statusMessage"`
	ApplicationResponse string          `json:"applicationResponse"`
}

// ParseResponse interpreta la respuesta HTTP de SUNAT.
//
//   - HTTP no-2xx: REJECTED, código ERROR, mensaje = cuerpo o un texto genérico.
//   - statusCode 0 (número o texto): ACCEPTED; cualquier otro código: REJECTED.
//   - sin statusCode, con cuerpo y sin XML firmado: SENT con código PENDING.
//   - cualquier otro caso: REJECTED con el cuerpo truncado como diagnóstico.
func ParseResponse(httpStatus int, body []byte, hasSignedXML bool) *ParsedResponse {
	text := strings.TrimSpace(string(body))

	if httpStatus < 200 || httpStatus > 299 {
		msg := truncate(text, maxDiagnosticLen)
		if msg == "" {
			msg = fmt.Sprintf("Error HTTP %d al enviar a SUNAT", httpStatus)
		}
		return &ParsedResponse{Status: entity.DocumentStatusRejected, Code: entity.ResponseCodeError, Message: msg}
	}

	var parsed submitResponseBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if code, ok := statusCodeString(parsed.StatusCode); ok {
			out := &ParsedResponse{Code: code, Message: parsed.StatusMessage}
			out.CDRXML, out.CDRZip = ExtractCDR(parsed.ApplicationResponse)
			if code == entity.ResponseCodeAccepted {
				out.Status = entity.DocumentStatusAccepted
				if out.Message == "" {
					out.Message = "Comprobante aceptado"
				}
			} else {
				out.Status = entity.DocumentStatusRejected
				if out.Message == "" {
					out.Message = "Comprobante rechazado con código " + code
				}
			}
			return out
		}
	}

	if text != "" && !hasSignedXML {
		return &ParsedResponse{
			Status:  entity.DocumentStatusSent,
			Code:    entity.ResponseCodePending,
			Message: "Recibido por SUNAT, pendiente de confirmación",
		}
	}

	msg := truncate(text, maxDiagnosticLen)
	if msg == "" {
		msg = "Respuesta vacía de SUNAT"
	}
	return &ParsedResponse{Status: entity.DocumentStatusRejected, Code: entity.ResponseCodeError, Message: msg}
}

// statusCodeString acepta statusCode numérico o texto. null o ausente = no reconocido.
func statusCodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return fmt.Sprintf("%d", i), true
		}
		return n.String(), true
	}
	return "", false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}
