package files

import (
	"bytes"
	"errors"
	"fmt"

	pdf "rsc.io/pdf"
)

// ValidateCertificate checks that the file at path is a readable PDF with
// at least one page whose content streams parse. It is used to vet the
// professional certificate that doctors upload during registration. An
// empty text layer is acceptable (scanned certificates).
func ValidateCertificate(path string) error {
	r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("certificado inválido: %w", err)
	}
	if r.NumPage() < 1 {
		return errors.New("certificado inválido: el PDF no tiene páginas")
	}
	if _, err := ExtractPDFText(path, 4096); err != nil {
		return fmt.Errorf("certificado inválido: %w", err)
	}
	return nil
}

// ExtractPDFText opens a PDF at filePath and returns extracted text up to maxChars.
// It returns an error if the file can't be read. If maxChars <= 0, a sane default is used.
func ExtractPDFText(filePath string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = 12000
	}

	r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}

	// Some PDFs have no text layer; return empty string in that case
	var buf bytes.Buffer
	total := r.NumPage()
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		for _, t := range content.Text {
			buf.WriteString(t.S)
		}
		buf.WriteString("\n\n")
		if buf.Len() >= maxChars {
			break
		}
	}

	if buf.Len() == 0 {
		return "", nil
	}
	if buf.Len() > maxChars {
		return buf.String()[:maxChars], nil
	}
	return buf.String(), nil
}
