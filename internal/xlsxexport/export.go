// Package xlsxexport implements the excel export tool: structured
// workbook emission with per-sheet data, header formatting, autofilter,
// freeze panes, and column widths, via github.com/xuri/excelize/v2.
package xlsxexport

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rizrmd/claystudio/internal/model"
)

// Sheet is one worksheet's worth of tabular data to emit.
type Sheet struct {
	Name        string
	Headers     []string
	Rows        [][]any
	FreezeHead  bool
	AutoFilter  bool
	ColumnWidth float64 // 0 = excelize's default width
}

// Workbook describes the full export request.
type Workbook struct {
	Sheets []Sheet
}

// Build writes every sheet and returns the workbook's bytes.
func Build(wb Workbook) ([]byte, error) {
	if len(wb.Sheets) == 0 {
		return nil, model.NewError(model.ErrBadRequest, "workbook must have at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E8E8E8"}, Pattern: 1},
	})
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "create header style", err)
	}

	for i, sheet := range wb.Sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}
		var idx int
		if i == 0 {
			idx, _ = f.GetSheetIndex("Sheet1")
			f.SetSheetName("Sheet1", sheetName)
		} else {
			idx, err = f.NewSheet(sheetName)
			if err != nil {
				return nil, model.Wrap(model.ErrInternal, "create sheet", err)
			}
		}

		if err := writeSheet(f, sheetName, sheet, headerStyle); err != nil {
			return nil, err
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "serialize workbook", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheetName string, sheet Sheet, headerStyle int) error {
	for col, h := range sheet.Headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return model.Wrap(model.ErrInternal, "write header cell", err)
		}
	}
	if len(sheet.Headers) > 0 {
		lastCol, _ := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
		if err := f.SetCellStyle(sheetName, "A1", lastCol, headerStyle); err != nil {
			return model.Wrap(model.ErrInternal, "style header row", err)
		}
	}

	for r, row := range sheet.Rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return model.Wrap(model.ErrInternal, "write data cell", err)
			}
		}
	}

	if sheet.AutoFilter && len(sheet.Headers) > 0 {
		lastCol, _ := excelize.CoordinatesToCellName(len(sheet.Headers), len(sheet.Rows)+1)
		rangeRef := fmt.Sprintf("A1:%s", lastCol)
		if err := f.AutoFilter(sheetName, rangeRef, nil); err != nil {
			return model.Wrap(model.ErrInternal, "set autofilter", err)
		}
	}

	if sheet.FreezeHead {
		if err := f.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			Split:       false,
			XSplit:      0,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return model.Wrap(model.ErrInternal, "freeze header pane", err)
		}
	}

	if sheet.ColumnWidth > 0 && len(sheet.Headers) > 0 {
		lastColLetter, _ := excelize.ColumnNumberToName(len(sheet.Headers))
		if err := f.SetColWidth(sheetName, "A", lastColLetter, sheet.ColumnWidth); err != nil {
			return model.Wrap(model.ErrInternal, "set column width", err)
		}
	}
	return nil
}
