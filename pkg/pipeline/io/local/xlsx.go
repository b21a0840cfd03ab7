package local

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

const (
	changedSheet   = "Changed"
	unchangedSheet = "Unchanged"
)

// WriteReviewWorkbook writes an XLSX workbook with one sheet for changed names
// and one for rejected names, for reviewers who prefer a spreadsheet to JSON.
func WriteReviewWorkbook(path string, changed []schema.ChangedRecord, unchanged []schema.UnchangedRecord) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	// The default sheet is renamed rather than deleted so the workbook always has an active sheet.
	if err := f.SetSheetName("Sheet1", changedSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	changedRows := make([][]any, 0, len(changed))
	for _, c := range changed {
		changedRows = append(changedRows, []any{c.OldName, c.NewName, c.Link})
	}
	if err := writeSheet(f, changedSheet, []string{"Old name", "New name", "Link"}, changedRows, headerStyle); err != nil {
		return err
	}

	if _, err := f.NewSheet(unchangedSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	unchangedRows := make([][]any, 0, len(unchanged))
	for _, u := range unchanged {
		unchangedRows = append(unchangedRows, []any{u.Name, u.Reason, u.Error, u.Link})
	}
	if err := writeSheet(f, unchangedSheet, []string{"Name", "Reason", "Error", "Link"}, unchangedRows, headerStyle); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+2, err)
		}
	}
	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 32); err != nil {
			return err
		}
	}
	return nil
}
