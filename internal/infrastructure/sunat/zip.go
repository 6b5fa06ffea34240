package sunat

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strings"
)

const maxCDRBytes = 8 << 20

// CompressXMLToZip empaqueta el XML en un ZIP en memoria con una única entrada xmlFilename.
func CompressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtractCDR interpreta applicationResponse: XML directo o ZIP en base64.
// Del ZIP se conserva el binario y el contenido de la primera entrada .xml.
func ExtractCDR(applicationResponse string) (cdrXML string, cdrZip []byte) {
	s := strings.TrimSpace(applicationResponse)
	if s == "" {
		return "", nil
	}
	if strings.HasPrefix(s, "<") {
		return s, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", nil
	}
	if bytes.HasPrefix(decoded, []byte("PK")) {
		xmlContent, err := FirstXMLEntry(decoded)
		if err != nil {
			return "", decoded
		}
		return string(xmlContent), decoded
	}
	if t := strings.TrimSpace(string(decoded)); strings.HasPrefix(t, "<") {
		return t, nil
	}
	return "", nil
}

// FirstXMLEntry devuelve el contenido de la primera entrada .xml del ZIP.
func FirstXMLEntry(zipBytes []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("zip: abrir: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("zip: abrir entrada %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxCDRBytes))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("zip: leer entrada %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("zip: no contiene archivos .xml")
}
