package ocr

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// embeddedPDFText reads the PDF's embedded text layer in-process. Only used
// when the pdftotext binary is unavailable; it does not preserve layout as
// faithfully, which the downstream line heuristics tolerate.
func embeddedPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\f\n")
		}
		buf.WriteString(txt)
	}
	return buf.String(), nil
}
