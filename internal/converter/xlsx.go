package converter

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pdfconvert/internal/types"
)

const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	columnGap = regexp.MustCompile(`\t+| {2,}`)
	// plain decimals, optionally with comma thousands groups
	numericCell = regexp.MustCompile(`^[+-]?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?$`)
)

type XlsxConverter struct {
	source Source
}

func (c *XlsxConverter) Mode() types.Mode    { return types.ModeSpreadsheet }
func (c *XlsxConverter) Extension() string   { return ".xlsx" }
func (c *XlsxConverter) ContentType() string { return XlsxContentType }

func (c *XlsxConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	doc, err := c.source.Open(ctx, inputPath)
	if err != nil {
		return err
	}

	return WriteXlsx(outputPath, doc)
}

// WriteXlsx saves doc as a workbook with one sheet per page and one row per
// line. Columns are split on tabs and runs of two or more spaces.
func WriteXlsx(path string, doc *Document) error {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"

	for i, page := range doc.Pages {
		sheet := fmt.Sprintf("Page %d", page.Number)

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}

		for r, line := range page.Lines {
			if strings.TrimSpace(line) == "" {
				continue
			}

			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}

			row := SplitColumns(line)
			if err = f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("failed to write row %d of %s: %w", r+1, sheet, err)
			}
		}
	}

	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return nil
}

// SplitColumns cuts a text line into cells; numeric cells become float64
func SplitColumns(line string) []any {
	fields := columnGap.Split(strings.TrimSpace(line), -1)
	row := make([]any, 0, len(fields))

	for _, field := range fields {
		row = append(row, cellValue(field))
	}

	return row
}

func cellValue(s string) any {
	if !numericCell.MatchString(s) {
		return s
	}

	// keep identifiers such as zip codes or invoice numbers as text
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return s
	}

	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return s
	}

	return n
}
