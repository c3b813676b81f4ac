package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readXLSX parses the first sheet of an Excel workbook. Cells are read
// as text so leading zeros and check-digit hyphens in national ids
// survive.
func readXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	idx, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, record := range records[1:] {
		row := Row{
			NationalID: cell(record, idx, "national_id"),
			Name:       cell(record, idx, "name"),
			Cohort:     cell(record, idx, "cohort"),
		}
		if row.NationalID == "" && row.Name == "" {
			continue // trailing blank rows
		}
		rows = append(rows, row)
	}
	return rows, nil
}
