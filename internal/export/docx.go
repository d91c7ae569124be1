package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/verity-labs/chorus/internal/core"
)

// DocxRenderer writes a minimal WordprocessingML package: content
// types, package relationships, and a single document part. Word,
// LibreOffice and Pages all open it; no styles part is needed because
// formatting is carried as direct run properties.
type DocxRenderer struct{}

// NewDocxRenderer creates the docx renderer.
func NewDocxRenderer() *DocxRenderer {
	return &DocxRenderer{}
}

// Extension implements core.Renderer.
func (r *DocxRenderer) Extension() string {
	return "docx"
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// Render implements core.Renderer.
func (r *DocxRenderer) Render(doc core.ReportDocument, w io.Writer) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", documentXML(doc)},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.body)); err != nil {
			return fmt.Errorf("writing %s: %w", part.name, err)
		}
	}

	return zw.Close()
}

func documentXML(doc core.ReportDocument) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	writeParagraph(&sb, doc.Title, 36, true)
	for _, line := range strings.Split(doc.Body, "\n") {
		text := strings.TrimRight(line, " \t")
		switch {
		case strings.HasPrefix(text, "### "):
			writeParagraph(&sb, strings.TrimPrefix(text, "### "), 26, true)
		case strings.HasPrefix(text, "## "):
			writeParagraph(&sb, strings.TrimPrefix(text, "## "), 30, true)
		case strings.HasPrefix(text, "# "):
			writeParagraph(&sb, strings.TrimPrefix(text, "# "), 34, true)
		default:
			writeParagraph(&sb, text, 0, false)
		}
	}

	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}

// writeParagraph appends one w:p element. size is in half-points; zero
// keeps the document default.
func writeParagraph(sb *strings.Builder, text string, size int, bold bool) {
	sb.WriteString(`<w:p>`)
	if text != "" {
		sb.WriteString(`<w:r>`)
		if bold || size > 0 {
			sb.WriteString(`<w:rPr>`)
			if bold {
				sb.WriteString(`<w:b/>`)
			}
			if size > 0 {
				fmt.Fprintf(sb, `<w:sz w:val="%d"/>`, size)
			}
			sb.WriteString(`</w:rPr>`)
		}
		fmt.Fprintf(sb, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(text))
		sb.WriteString(`</w:r>`)
	}
	sb.WriteString(`</w:p>`)
}

func escapeXML(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
