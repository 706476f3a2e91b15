// Package export writes changelists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Products"

// WriteXLSX writes header and rows to a single-sheet workbook. Decimal cells
// are stored as numbers.
func WriteXLSX(w io.Writer, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if d, ok := v.(decimal.Decimal); ok {
				v, _ = d.Float64()
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("celda %s: %w", cell, err)
			}
		}
	}
	return f.Write(w)
}
