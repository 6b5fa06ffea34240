package signer

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"

	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

// KeyPair llave privada RSA y certificado X.509 del emisor, ya normalizados.
type KeyPair struct {
	PrivateKey  *rsa.PrivateKey
	Certificate *x509.Certificate
}

// Shape forma en la que llegó el material del certificado.
type Shape int

const (
	ShapeUnknown   Shape = iota
	ShapePEM             // texto con -----BEGIN
	ShapePath            // ruta a .p12/.pfx/.pem
	ShapeBase64P12       // PKCS#12 en base64
	ShapeRawP12          // PKCS#12 binario
)

func (s Shape) String() string {
	switch s {
	case ShapePEM:
		return "pem"
	case ShapePath:
		return "path"
	case ShapeBase64P12:
		return "base64-pkcs12"
	case ShapeRawP12:
		return "raw-pkcs12"
	}
	return "unknown"
}

var certExtensions = map[string]bool{".p12": true, ".pfx": true, ".pem": true, ".crt": true, ".cer": true, ".key": true}

// CertificateResolver resuelve el certificado del emisor en orden fijo: PEM, ruta, base64, binario.
type CertificateResolver struct {
	baseDirs []string
}

// NewCertificateResolver baseDirs son los directorios donde se buscan rutas relativas.
func NewCertificateResolver(baseDirs []string) *CertificateResolver {
	return &CertificateResolver{baseDirs: baseDirs}
}

// Detect clasifica el material sin decodificarlo.
func (r *CertificateResolver) Detect(material string) (Shape, string) {
	if strings.Contains(material, "-----BEGIN") {
		return ShapePEM, ""
	}
	if path, ok := r.findFile(material); ok {
		return ShapePath, path
	}
	if _, err := decodeBase64(material); err == nil {
		return ShapeBase64P12, ""
	}
	if material != "" {
		return ShapeRawP12, ""
	}
	return ShapeUnknown, ""
}

// Resolve devuelve el par llave/certificado o un *CertificateError.
func (r *CertificateResolver) Resolve(material, password string) (*KeyPair, error) {
	if strings.TrimSpace(material) == "" {
		return nil, &domsunat.CertificateError{Reason: "el emisor no tiene certificado"}
	}
	shape, path := r.Detect(material)
	switch shape {
	case ShapePEM:
		return FromPEM([]byte(material), password)
	case ShapePath:
		return FromFile(path, password)
	case ShapeBase64P12:
		data, _ := decodeBase64(material)
		return FromPKCS12(data, password)
	case ShapeRawP12:
		return FromPKCS12([]byte(material), password)
	}
	return nil, &domsunat.CertificateError{Reason: "formato de certificado no reconocido"}
}

// findFile busca material como ruta absoluta o relativa a cada directorio base.
func (r *CertificateResolver) findFile(material string) (string, bool) {
	if strings.ContainsAny(material, "\n\r\x00") || len(material) > 1024 {
		return "", false
	}
	candidates := []string{material}
	if !filepath.IsAbs(material) {
		for _, dir := range r.baseDirs {
			candidates = append(candidates, filepath.Join(dir, material))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	// Una ruta con extensión de certificado que no existe es un error de configuración, no base64.
	if certExtensions[strings.ToLower(filepath.Ext(material))] {
		return material, true
	}
	return "", false
}

// FromFile lee un .p12/.pfx o un PEM desde disco.
func FromFile(path, password string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domsunat.CertificateError{Reason: "no se pudo leer " + path, Err: err}
	}
	if strings.Contains(string(data), "-----BEGIN") {
		return FromPEM(data, password)
	}
	return FromPKCS12(data, password)
}

// FromPKCS12 decodifica un contenedor PKCS#12. Si trae cadena de certificados usa ToPEM.
func FromPKCS12(data []byte, password string) (*KeyPair, error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, &domsunat.CertificateError{Reason: "la llave privada del PKCS#12 no es RSA"}
		}
		return newKeyPair(rsaKey, []*x509.Certificate{cert})
	}
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, &domsunat.CertificateError{Reason: "contraseña del certificado incorrecta", Err: err}
	}
	blocks, pemErr := pkcs12.ToPEM(data, password)
	if pemErr != nil {
		if errors.Is(pemErr, pkcs12.ErrIncorrectPassword) {
			return nil, &domsunat.CertificateError{Reason: "contraseña del certificado incorrecta", Err: pemErr}
		}
		return nil, &domsunat.CertificateError{Reason: "no se pudo decodificar el PKCS#12", Err: err}
	}
	var buf []byte
	for _, b := range blocks {
		buf = append(buf, pem.EncodeToMemory(b)...)
	}
	return FromPEM(buf, password)
}

// FromPEM extrae llave y certificado(s) de texto PEM. Acepta PKCS#1, PKCS#8 y PEM cifrado legado.
func FromPEM(data []byte, password string) (*KeyPair, error) {
	var key *rsa.PrivateKey
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			c, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, &domsunat.CertificateError{Reason: "certificado X.509 inválido", Err: err}
			}
			certs = append(certs, c)
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			der := block.Bytes
			// PEM cifrado legado (Proc-Type: 4,ENCRYPTED)
			if x509.IsEncryptedPEMBlock(block) {
				var err error
				der, err = x509.DecryptPEMBlock(block, []byte(password))
				if err != nil {
					return nil, &domsunat.CertificateError{Reason: "contraseña de la llave privada incorrecta", Err: err}
				}
			}
			if block.Type == "ENCRYPTED PRIVATE KEY" {
				return nil, &domsunat.CertificateError{Reason: "llave PKCS#8 cifrada no soportada; exporte el certificado como .p12"}
			}
			k, err := parsePrivateKey(der)
			if err != nil {
				return nil, err
			}
			key = k
		}
	}
	if key == nil {
		return nil, &domsunat.CertificateError{Reason: "no se encontró llave privada"}
	}
	if len(certs) == 0 {
		return nil, &domsunat.CertificateError{Reason: "no se encontró certificado"}
	}
	return newKeyPair(key, certs)
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, &domsunat.CertificateError{Reason: "llave privada ilegible", Err: err}
	}
	rsaKey, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, &domsunat.CertificateError{Reason: "la llave privada no es RSA"}
	}
	return rsaKey, nil
}

// newKeyPair elige, de la cadena, el certificado que corresponde a la llave.
func newKeyPair(key *rsa.PrivateKey, certs []*x509.Certificate) (*KeyPair, error) {
	for _, c := range certs {
		if pub, ok := c.PublicKey.(*rsa.PublicKey); ok && pub.N.Cmp(key.N) == 0 && pub.E == key.E {
			return &KeyPair{PrivateKey: key, Certificate: c}, nil
		}
	}
	return nil, &domsunat.CertificateError{Reason: "el certificado no corresponde a la llave privada"}
}

func decodeBase64(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	if clean == "" {
		return nil, fmt.Errorf("base64 vacío")
	}
	return base64.StdEncoding.DecodeString(clean)
}

// CertDigest SHA-256 (base64) del DER del certificado, para xades:CertDigest.
func CertDigest(cert *x509.Certificate) string {
	h := sha256.Sum256(cert.Raw)
	return base64.StdEncoding.EncodeToString(h[:])
}
