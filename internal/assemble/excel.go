package assemble

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/visionocr/pdf2word/internal/structure"
)

// WriteExcel aggregates every table node into a single worksheet, one
// blank row between pages, as the table-extraction mode's .xlsx artifact.
func WriteExcel(nodes []structure.Node, path string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"

	row := 1
	appendRow := func(cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(cells))
		for i, c := range cells {
			vals[i] = c
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
		row++
		return nil
	}

	wrote := false
	lastPage := -1
	for _, n := range nodes {
		if n.Kind != structure.KindTable {
			continue
		}
		if lastPage >= 0 && n.Page != lastPage {
			row++ // blank row between pages
		}
		lastPage = n.Page
		for _, cells := range n.Rows {
			if err := appendRow(cells); err != nil {
				return &AssemblyError{Path: path, Cause: err}
			}
			wrote = true
		}
	}
	if !wrote {
		for _, line := range [][]string{
			{"No tables were recognised."},
			{},
			{"Try source mode \"page\" or \"both\" for native PDFs, or check image quality."},
		} {
			if err := appendRow(line); err != nil {
				return &AssemblyError{Path: path, Cause: err}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &AssemblyError{Path: path, Cause: err}
	}
	if err := f.SaveAs(path); err != nil {
		return &AssemblyError{Path: path, Cause: err}
	}
	return nil
}
