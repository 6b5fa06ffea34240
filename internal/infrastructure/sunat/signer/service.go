// Package signer firma comprobantes UBL con XML-DSIG (enveloped, RSA-SHA256, C14N exclusiva)
// y los complementa con propiedades XAdES-BES.
package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

var signaturePresent = regexp.MustCompile(`<([A-Za-z_][\w.-]*:)?Signature[\s>]`)

// DigitalSignatureService resuelve el certificado, firma e inyecta ds:Signature y luego aplica XAdES.
type DigitalSignatureService struct {
	resolver *CertificateResolver
	log      sunat.EventLogger
	now      func() time.Time
}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService(resolver *CertificateResolver, log sunat.EventLogger) *DigitalSignatureService {
	return &DigitalSignatureService{resolver: resolver, log: log, now: time.Now}
}

// WithClock fija el reloj usado para xades:SigningTime.
func (s *DigitalSignatureService) WithClock(now func() time.Time) *DigitalSignatureService {
	s.now = now
	return s
}

var _ sunat.Signer = (*DigitalSignatureService)(nil)

// Sign implementa sunat.Signer: resuelve el certificado, firma y aplica XAdES (best-effort).
func (s *DigitalSignatureService) Sign(xmlStr, certificate, password string) (string, error) {
	kp, err := s.resolver.Resolve(certificate, password)
	if err != nil {
		return "", err
	}
	signed, err := s.SignWithKey(xmlStr, kp)
	if err != nil {
		return "", err
	}
	out, warn := Augment(signed, kp, s.now())
	if warn != nil {
		s.log.Warn("sunat.xades.skipped", map[string]any{"step": warn.Step, "error": warn.Error()})
		return signed, nil
	}
	s.log.Info("sunat.xades.applied", map[string]any{
		"subject":    kp.Certificate.Subject.String(),
		"issuer":     kp.Certificate.Issuer.String(),
		"serial":     kp.Certificate.SerialNumber.String(),
		"not_before": kp.Certificate.NotBefore.UTC().Format(time.RFC3339),
		"not_after":  kp.Certificate.NotAfter.UTC().Format(time.RFC3339),
	})
	return out, nil
}

// SignWithKey firma el documento completo (Reference URI="") e inserta ds:Signature en el
// primer ext:ExtensionContent; si no existe, en la raíz.
func (s *DigitalSignatureService) SignWithKey(xmlStr string, kp *KeyPair) (string, error) {
	if strings.TrimSpace(xmlStr) == "" {
		return "", &domsunat.SigningError{Reason: "XML vacío"}
	}
	if kp == nil || kp.PrivateKey == nil || kp.Certificate == nil {
		return "", &domsunat.SigningError{Reason: "par llave/certificado incompleto"}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return "", &domsunat.SigningError{Reason: "XML mal formado", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return "", &domsunat.SigningError{Reason: "documento sin raíz"}
	}

	// 1) Digest del documento sin firma (equivale a enveloped-signature + exc-c14n)
	canonicalDoc, err := canonicalizeElement(root)
	if err != nil {
		return "", &domsunat.SigningError{Reason: "canonicalizar documento", Err: err}
	}
	docDigest := sha256.Sum256(canonicalDoc)

	// 2) SignedInfo y SignatureValue
	signedInfoXML := buildSignedInfo(base64.StdEncoding.EncodeToString(docDigest[:]))
	canonicalSignedInfo, err := canonicalize([]byte(signedInfoXML))
	if err != nil {
		return "", &domsunat.SigningError{Reason: "canonicalizar SignedInfo", Err: err}
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, kp.PrivateKey, crypto.SHA256, signHash[:])
	if err != nil {
		return "", &domsunat.SigningError{Reason: "firmar SignedInfo", Err: err}
	}

	// 3) ds:Signature con KeyInfo
	sigXML := buildSignature(signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(kp.Certificate.Raw))
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(sigXML); err != nil {
		return "", &domsunat.SigningError{Reason: "parsear Signature", Err: err}
	}

	// 4) Inyectar
	target := findFirst(root, "ExtensionContent")
	if target == nil {
		s.log.Warn("sunat.sign.fallback_root", map[string]any{"reason": "no existe ext:ExtensionContent"})
		target = root
	}
	target.AddChild(sigDoc.Root())

	out, err := doc.WriteToString()
	if err != nil {
		return "", &domsunat.SigningError{Reason: "serializar XML firmado", Err: err}
	}
	if !signaturePresent.MatchString(out) {
		return "", &domsunat.SigningError{Reason: "el XML firmado no contiene Signature"}
	}
	return out, nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// canonicalizeElement serializa el elemento como documento propio (sin declaración XML) y lo canonicaliza.
func canonicalizeElement(el *etree.Element) ([]byte, error) {
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	s, err := d.WriteToString()
	if err != nil {
		return nil, err
	}
	return canonicalize([]byte(s))
}

func buildSignedInfo(docDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgExcC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgExcC14N + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignature(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

// findFirst recorrido en profundidad por nombre local.
func findFirst(el *etree.Element, local string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			return child
		}
		if found := findFirst(child, local); found != nil {
			return found
		}
	}
	return nil
}

func escapeXML(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
