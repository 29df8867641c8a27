package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// WriteXLSX writes every non-empty table to its own sheet of one workbook.
// Numeric cells are stored as numbers. At least one table must have rows.
func WriteXLSX(w io.Writer, tables ...Table) error {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	written := 0
	for _, t := range tables {
		if t.Empty() {
			continue
		}
		sheet := sheetName(t, written)
		if written == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %q: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, t); err != nil {
			return err
		}
		written++
	}
	if written == 0 {
		return ErrEmptyTable
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("sheet %q header: %w", sheet, err)
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = cellValue(c)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func cellValue(s string) any {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

// sheetName derives an Excel-safe sheet name.
func sheetName(t Table, idx int) string {
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("Table %d", idx+1)
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			r = '_'
		}
		out = append(out, r)
	}
	if len(out) > maxSheetName {
		out = out[:maxSheetName]
	}
	return string(out)
}
