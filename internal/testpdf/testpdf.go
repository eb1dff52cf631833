// Package testpdf builds small, well-formed PDF documents for tests.
//
// Every document has a classic cross-reference table with exact byte
// offsets, so both strict structural checks and MuPDF accept it.
package testpdf

import (
	"bytes"
	"fmt"
	"strings"
)

// Minimal returns a one-page PDF showing "Hello PDF"
func Minimal() []byte {
	return New([]string{"Hello PDF"})
}

// New returns a PDF with one page per element of pages, each page
// showing its lines top to bottom in Helvetica.
func New(pages ...[]string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	kids := make([]string, 0, len(pages))

	for _, lines := range pages {
		content := pageContent(lines)
		contentNum := len(objects) + 1
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))

		pageNum := len(objects) + 1
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>",
			contentNum))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
	}

	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	return assemble(objects)
}

// Truncated returns a valid document cut in half, losing its xref and trailer
func Truncated() []byte {
	data := Minimal()
	return data[:len(data)/2]
}

// XRefStream returns a document whose startxref points to a
// cross-reference stream instead of a classic table.
func XRefStream() []byte {
	var buf bytes.Buffer

	buf.WriteString("%PDF-1.5\n%\xe2\xe3\xcf\xd3\n")

	bodies := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
	}

	for i, body := range bodies {
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefOffset := buf.Len()
	// entries are not decoded by the structural check, only the dictionary
	stream := "\x00\x00\x00\x00"
	fmt.Fprintf(&buf, "3 0 obj\n<< /Type /XRef /Size 4 /Root 1 0 R /W [1 2 1] /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		len(stream), stream)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}

// WithoutRoot returns a document whose trailer lacks the /Root entry
func WithoutRoot() []byte {
	return bytes.Replace(Minimal(), []byte("/Root 1 0 R"), []byte("/Info 1 0 R"), 1)
}

func pageContent(lines []string) string {
	var sb strings.Builder

	sb.WriteString("BT /F1 12 Tf 72 720 Td")

	for i, line := range lines {
		if i > 0 {
			sb.WriteString(" 0 -16 Td")
		}

		fmt.Fprintf(&sb, " (%s) Tj", escape(line))
	}

	sb.WriteString(" ET")

	return sb.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}

func assemble(objects []string) []byte {
	var buf bytes.Buffer

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")

	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\n", len(objects)+1)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}
