package sunat

// EventLogger registro estructurado por eventos usado por el firmador, el orquestador y el dispatcher.
// Los nombres de evento son puntuados: "sunat.sign.fallback_root", "sunat.submit.simulated", ...
type EventLogger interface {
	Info(event string, fields map[string]any)
	Warn(event string, fields map[string]any)
	Error(event string, fields map[string]any)
}

// Signer firma un XML UBL y devuelve el XML con ds:Signature dentro de ext:ExtensionContent.
type Signer interface {
	// Sign recibe el XML sin firma y el material del certificado (PEM, ruta .p12 o PKCS#12 en base64)
	// con su contraseña.
	Sign(xml string, certificate, password string) (string, error)
}
