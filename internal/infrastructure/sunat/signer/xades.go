package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// ErrNoSignature el XML no contiene ds:Signature.
var ErrNoSignature = errors.New("signer: no existe ds:Signature")

// XadesWarning motivo por el que no se aplicó XAdES; la firma XML-DSIG básica sigue siendo válida.
type XadesWarning struct {
	Step string
	Err  error
}

func (w *XadesWarning) Error() string {
	return fmt.Sprintf("xades (%s): %v", w.Step, w.Err)
}

func (w *XadesWarning) Unwrap() error { return w.Err }

// Augment agrega xades:QualifyingProperties al ds:Signature existente, referencia SignedProperties
// desde SignedInfo y vuelve a calcular SignatureValue con kp.
// Ante cualquier fallo devuelve el XML recibido sin cambios y un *XadesWarning.
// Si el XML ya tiene QualifyingProperties se devuelve tal cual.
func Augment(signedXML string, kp *KeyPair, signingTime time.Time) (string, *XadesWarning) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(signedXML); err != nil {
		return signedXML, &XadesWarning{Step: "parse", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return signedXML, &XadesWarning{Step: "parse", Err: fmt.Errorf("documento sin raíz")}
	}
	sig := root
	if sig.Tag != "Signature" {
		sig = findFirst(root, "Signature")
	}
	if sig == nil {
		return signedXML, &XadesWarning{Step: "signature", Err: ErrNoSignature}
	}
	if findFirst(sig, "QualifyingProperties") != nil {
		return signedXML, nil
	}

	sigID := sig.SelectAttrValue("Id", "")
	if sigID == "" {
		sigID = DefaultSignatureID
		sig.CreateAttr("Id", sigID)
	}

	certEl := findFirst(sig, "X509Certificate")
	if certEl == nil {
		return signedXML, &XadesWarning{Step: "certificate", Err: fmt.Errorf("no existe ds:X509Certificate")}
	}
	der, err := decodeBase64(certEl.Text())
	if err != nil {
		return signedXML, &XadesWarning{Step: "certificate", Err: err}
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return signedXML, &XadesWarning{Step: "certificate", Err: err}
	}

	objectRef := DefaultObjectRef
	if ref := findFirst(sig, "Reference"); ref != nil {
		if uri := ref.SelectAttrValue("URI", ""); uri != "" {
			objectRef = uri
		}
	}

	signedInfo := findFirst(sig, "SignedInfo")
	sigValue := findFirst(sig, "SignatureValue")
	if signedInfo == nil || sigValue == nil {
		return signedXML, &XadesWarning{Step: "signature", Err: fmt.Errorf("ds:Signature sin SignedInfo o SignatureValue")}
	}
	if kp == nil || kp.PrivateKey == nil {
		return signedXML, &XadesWarning{Step: "key", Err: fmt.Errorf("sin llave privada para volver a firmar SignedInfo")}
	}

	propsID := sigID + "-SignedProperties"
	propsDoc := etree.NewDocument()
	if err := propsDoc.ReadFromString(buildQualifyingProperties(sigID, propsID, signingTime, cert, objectRef)); err != nil {
		return signedXML, &XadesWarning{Step: "build", Err: err}
	}
	canonicalProps, err := canonicalizeElement(findFirst(propsDoc.Root(), "SignedProperties"))
	if err != nil {
		return signedXML, &XadesWarning{Step: "build", Err: err}
	}
	propsDigest := sha256.Sum256(canonicalProps)
	addPropertiesReference(signedInfo, propsID, base64.StdEncoding.EncodeToString(propsDigest[:]))

	// SignedInfo cambió: SignatureValue se recalcula
	canonicalSignedInfo, err := canonicalizeElement(signedInfo)
	if err != nil {
		return signedXML, &XadesWarning{Step: "sign", Err: err}
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	value, err := rsa.SignPKCS1v15(rand.Reader, kp.PrivateKey, crypto.SHA256, signHash[:])
	if err != nil {
		return signedXML, &XadesWarning{Step: "sign", Err: err}
	}
	sigValue.SetText(base64.StdEncoding.EncodeToString(value))
	sig.AddChild(propsDoc.Root())

	out, err := doc.WriteToString()
	if err != nil {
		return signedXML, &XadesWarning{Step: "serialize", Err: err}
	}
	return out, nil
}

// addPropertiesReference agrega a SignedInfo la ds:Reference de tipo SignedProperties.
func addPropertiesReference(signedInfo *etree.Element, propsID, digestB64 string) {
	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("Id", propsID+"-Reference")
	ref.CreateAttr("Type", TypeSignedProperties)
	ref.CreateAttr("URI", "#"+propsID)
	ref.CreateElement("ds:Transforms").CreateElement("ds:Transform").CreateAttr("Algorithm", AlgExcC14N)
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("ds:DigestValue").SetText(digestB64)
}

// buildQualifyingProperties arma ds:Object. SignedProperties declara sus propios namespaces
// para que su forma canónica no dependa de los ancestros.
func buildQualifyingProperties(sigID, propsID string, signingTime time.Time, cert *x509.Certificate, objectRef string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Object xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<xades:QualifyingProperties xmlns:xades="` + NamespaceXAdES + `" Target="#` + escapeXML(sigID) + `">`)
	sb.WriteString(`<xades:SignedProperties xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `" Id="` + escapeXML(propsID) + `">`)

	sb.WriteString(`<xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SigningTime>` + signingTime.UTC().Format(signingTimeLayout) + `</xades:SigningTime>`)
	sb.WriteString(`<xades:SigningCertificate><xades:Cert><xades:CertDigest>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + CertDigest(cert) + `</ds:DigestValue></xades:CertDigest>`)
	sb.WriteString(`<xades:IssuerSerial><ds:X509IssuerName>` + escapeXML(cert.Issuer.String()) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + cert.SerialNumber.String() + `</ds:X509SerialNumber></xades:IssuerSerial>`)
	sb.WriteString(`</xades:Cert></xades:SigningCertificate>`)
	sb.WriteString(`<xades:SignerRole><xades:ClaimedRoles><xades:ClaimedRole>` + ClaimedRoleSupplier + `</xades:ClaimedRole></xades:ClaimedRoles></xades:SignerRole>`)
	sb.WriteString(`</xades:SignedSignatureProperties>`)

	sb.WriteString(`<xades:SignedDataObjectProperties>`)
	sb.WriteString(`<xades:DataObjectFormat ObjectReference="` + escapeXML(objectRef) + `">`)
	sb.WriteString(`<xades:MimeType>` + DataObjectMimeType + `</xades:MimeType>`)
	sb.WriteString(`<xades:Encoding>` + DataObjectEncoding + `</xades:Encoding>`)
	sb.WriteString(`</xades:DataObjectFormat>`)
	sb.WriteString(`</xades:SignedDataObjectProperties>`)

	sb.WriteString(`</xades:SignedProperties></xades:QualifyingProperties></ds:Object>`)
	return sb.String()
}
