package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
)

const bodyFamily = "body"

// Encoder draws laid-out documents as PDF.
type Encoder struct {
	// FontPath is an optional UTF-8 TrueType font. Without it the core
	// Helvetica font is used and text is translated to cp1252, so characters
	// outside that code page do not render.
	FontPath string
}

// Encode writes doc to w.
func (e Encoder) Encode(doc *Document, w io.Writer) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(MarginLeft, MarginTop, MarginLeft)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("inputsheet", false)
	pdf.SetCreationDate(time.Now())

	family := "Helvetica"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if e.FontPath != "" {
		// fpdf resolves font files relative to its font location.
		pdf.SetFontLocation(filepath.Dir(e.FontPath))
		pdf.AddUTF8Font(bodyFamily, "", filepath.Base(e.FontPath))
		family = bodyFamily
		translate = func(s string) string { return s }
	}
	if pdf.Err() {
		return fmt.Errorf("load font: %w", pdf.Error())
	}

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, line := range page.Lines {
			pdf.SetFont(family, "", line.Size)
			// fpdf places text on its baseline; layout Y is the line top.
			pdf.Text(line.X, line.Y+line.Size, translate(line.Text))
		}
	}

	if pdf.Err() {
		return fmt.Errorf("draw pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Bytes encodes doc into memory.
func (e Encoder) Bytes(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
