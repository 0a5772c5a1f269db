package parser

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/datahub-cli/internal/table"
	"github.com/xuri/excelize/v2"
)

type workbookFormat struct{}

func (workbookFormat) CanParse(filename string) bool {
	return hasExt(filename, ".xlsx")
}

// Parse reads the selected sheet (or the first one) into a table.
func (workbookFormat) Parse(content []byte, opt table.Options) (table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return table.Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.Table{}, nil
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		found := false
		for _, s := range sheets {
			if s == opt.Sheet {
				found = true
				break
			}
		}
		if !found {
			return table.Table{}, fmt.Errorf("sheet %q not found; available: %v", opt.Sheet, sheets)
		}
		sheet = opt.Sheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return table.Table{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return table.FromRows(rows), nil
}
