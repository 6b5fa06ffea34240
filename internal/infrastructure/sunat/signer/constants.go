package signer

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgExcC14N         = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"

	TypeSignedProperties = "http://uri.etsi.org/01903#SignedProperties"
)

// Valores por defecto de la firma.
const (
	DefaultSignatureID  = "SignatureSP"
	DefaultObjectRef    = "#Invoice"
	ClaimedRoleSupplier = "supplier"
	DataObjectMimeType  = "text/xml"
	DataObjectEncoding  = "UTF-8"
	signingTimeLayout   = "2006-01-02T15:04:05Z"
)
