// internal/app/system/workbook/import.go
package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadGrid returns the first worksheet of an .xlsx file as raw cell values.
// Date cells come back as Excel serial numbers.
func ReadGrid(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}
