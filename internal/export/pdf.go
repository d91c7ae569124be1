package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/verity-labs/chorus/internal/core"
)

// PDFRenderer writes a minimal PDF 1.4 document: one Type1 Helvetica
// font and one content stream per page of wrapped monospaced-width
// text. Enough for a readable report without a PDF library.
type PDFRenderer struct{}

// NewPDFRenderer creates the pdf renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Extension implements core.Renderer.
func (r *PDFRenderer) Extension() string {
	return "pdf"
}

const (
	pdfLineWidth    = 95 // characters per wrapped line
	pdfLinesPerPage = 46
	pdfFontSize     = 11
	pdfLeading      = 14
	pdfMarginLeft   = 72
	pdfTopBaseline  = 720
)

// Render implements core.Renderer.
func (r *PDFRenderer) Render(doc core.ReportDocument, w io.Writer) error {
	lines := append([]string{doc.Title, ""}, wrapLines(doc.Body, pdfLineWidth)...)
	pages := paginate(lines, pdfLinesPerPage)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	total := 3 + 2*len(pages)
	offsets := make([]int, total+1)
	addObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	addObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	addObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, page := range pages {
		pageNum := 4 + 2*i
		contentNum := pageNum + 1
		stream := pageStream(page)

		addObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentNum))
		offsets[contentNum] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n%sendstream\nendobj\n",
			contentNum, len(stream), stream)
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= total; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xrefPos)

	_, err := w.Write(buf.Bytes())
	return err
}

func pageStream(lines []string) string {
	var sb strings.Builder
	sb.WriteString("BT\n")
	fmt.Fprintf(&sb, "/F1 %d Tf\n%d TL\n%d %d Td\n", pdfFontSize, pdfLeading, pdfMarginLeft, pdfTopBaseline)
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("T*\n")
		}
		fmt.Fprintf(&sb, "(%s) Tj\n", escapePDF(line))
	}
	sb.WriteString("ET\n")
	return sb.String()
}

// wrapLines word-wraps body text; words longer than the width are hard
// split so they cannot push past the page edge.
func wrapLines(body string, width int) []string {
	var out []string
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimRight(raw, " \t")
		if len(line) <= width {
			out = append(out, line)
			continue
		}
		current := ""
		for _, word := range strings.Fields(line) {
			for len(word) > width {
				if current != "" {
					out = append(out, current)
					current = ""
				}
				out = append(out, word[:width])
				word = word[width:]
			}
			switch {
			case current == "":
				current = word
			case len(current)+1+len(word) <= width:
				current += " " + word
			default:
				out = append(out, current)
				current = word
			}
		}
		if current != "" {
			out = append(out, current)
		}
	}
	return out
}

func paginate(lines []string, perPage int) [][]string {
	if len(lines) == 0 {
		return [][]string{{""}}
	}
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}

// escapePDF escapes PDF string delimiters and drops control bytes.
func escapePDF(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			if r < 0x20 {
				sb.WriteByte(' ')
				continue
			}
			if r > 0x7e {
				// Outside the basic Latin range Helvetica's default
				// encoding is unreliable; substitute.
				sb.WriteByte('?')
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
