package rowsource

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/adpulse/metrics-engine/internal/tabular"
)

// parseWorkbook reads the first sheet of an xlsx/xlsm workbook. Platforms
// that export workbooks put the report on the first sheet; extra sheets
// hold pivot tables and legal boilerplate we do not want.
func parseWorkbook(data []byte, maxRows int) (*tabular.ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return &tabular.ParseResult{Delimiter: ','}, nil
	}

	res := tabular.FromRecords(all[0], all[1:], maxRows)
	if len(sheets) > 1 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("workbook has %d sheets, importing %q only", len(sheets), sheets[0]))
	}
	return res, nil
}
