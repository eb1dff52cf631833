package converter

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzSource reads PDFs with MuPDF
type FitzSource struct{}

func (FitzSource) Open(ctx context.Context, path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	count := doc.NumPage()
	pages := make([]Page, 0, count)

	for i := range count {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text of page %d: %w", i+1, err)
		}

		pages = append(pages, Page{Number: i + 1, Lines: splitLines(text)})
	}

	return &Document{Pages: pages}, nil
}

// CountPages opens an in-memory PDF and reports its page count
func (FitzSource) CountPages(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	return doc.NumPage(), nil
}
