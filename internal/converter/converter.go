// Package converter turns a validated PDF on disk into an office document
// written at a path chosen by the caller.
package converter

import (
	"context"
	"fmt"
	"strings"

	"pdfconvert/internal/types"
)

// Page is the text of one PDF page, top to bottom
type Page struct {
	Number int
	Lines  []string
}

// Document is the extracted text layout of a PDF
type Document struct {
	Pages []Page
}

// Source extracts text from a PDF file
type Source interface {
	Open(ctx context.Context, path string) (*Document, error)
}

// Converter writes the conversion of inputPath to exactly outputPath
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
	Mode() types.Mode
	Extension() string
	ContentType() string
}

// Outcome is the tagged result of one conversion: Success when Reason is empty
type Outcome struct {
	OutputPath  string
	DisplayName string
	Reason      types.Reason
	Err         error
}

func (o Outcome) Succeeded() bool {
	return o.Reason == types.ReasonNone
}

// New is the factory for converters by mode
func New(mode types.Mode, src Source) (Converter, error) {
	switch mode {
	case types.ModeDocx:
		return &DocxConverter{source: src}, nil
	case types.ModeSpreadsheet:
		return &XlsxConverter{source: src}, nil
	default:
		return nil, fmt.Errorf("unknown conversion mode: %s", mode)
	}
}

// Run invokes c and maps every failure, panics included, to a conversion
// failure. It never returns an error or panics itself.
func Run(ctx context.Context, c Converter, inputPath, outputPath, displayName string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{
				Reason: types.ReasonConversion,
				Err:    types.Errorf(types.ReasonConversion, "conversion engine panic: %v", r),
			}
		}
	}()

	if err := c.Convert(ctx, inputPath, outputPath); err != nil {
		return Outcome{
			Reason: types.ReasonConversion,
			Err:    types.NewError(types.ReasonConversion, err),
		}
	}

	return Outcome{OutputPath: outputPath, DisplayName: displayName}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
