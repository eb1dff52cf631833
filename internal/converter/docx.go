package converter

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"pdfconvert/internal/types"
)

const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type DocxConverter struct {
	source Source
}

func (c *DocxConverter) Mode() types.Mode    { return types.ModeDocx }
func (c *DocxConverter) Extension() string   { return ".docx" }
func (c *DocxConverter) ContentType() string { return DocxContentType }

func (c *DocxConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	doc, err := c.source.Open(ctx, inputPath)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err = WriteDocx(f, doc, time.Now()); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

const coreXMLFormat = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
	`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
	`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
	`<dc:creator>pdfconvert</dc:creator>` +
	`<dcterms:created xsi:type="dcterms:W3CDTF">%[1]s</dcterms:created>` +
	`<dcterms:modified xsi:type="dcterms:W3CDTF">%[1]s</dcterms:modified>` +
	`</cp:coreProperties>`

// US Letter with one inch margins, in twentieths of a point
const sectionXML = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
	`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`

// WriteDocx writes doc as a WordprocessingML package: one paragraph per
// line and a page break between PDF pages.
func WriteDocx(w io.Writer, doc *Document, created time.Time) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"docProps/core.xml", []byte(fmt.Sprintf(coreXMLFormat, created.UTC().Format(time.RFC3339)))},
		{"word/document.xml", documentXML(doc)},
	}

	for _, part := range parts {
		pw, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", part.name, err)
		}

		if _, err = pw.Write(part.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish docx package: %w", err)
	}

	return nil
}

func documentXML(doc *Document) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	buf.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	for i, page := range doc.Pages {
		if i > 0 {
			buf.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}

		for _, line := range page.Lines {
			if line == "" {
				buf.WriteString(`<w:p/>`)
				continue
			}

			buf.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
			_ = xml.EscapeText(&buf, []byte(line))
			buf.WriteString(`</w:t></w:r></w:p>`)
		}
	}

	buf.WriteString(sectionXML)
	buf.WriteString(`</w:body></w:document>`)

	return buf.Bytes()
}
