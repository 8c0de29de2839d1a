package statement

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheets with these names are preferred when a workbook has several.
var preferredSheetNames = []string{
	"transactions", "statement", "acct statement", "passbook", "sheet1",
}

// LoadExcel decodes an XLSX statement export into a Table. Cell values are
// read raw so spreadsheet serial dates reach the normalizer as digit
// strings instead of locale-formatted text.
func LoadExcel(reader io.Reader, opts LoadOptions) (Table, error) {
	f, err := excelize.OpenReader(reader, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := findStatementSheet(f)
	if sheet == "" {
		return Table{}, ErrNoHeader
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}

	start := opts.SkipLines
	if start >= len(rows) {
		return Table{}, ErrNoHeader
	}

	return Table{
		Headers: rows[start],
		Rows:    rows[start+1:],
	}, nil
}

// findStatementSheet picks the sheet most likely to hold transaction rows.
func findStatementSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	for _, preferred := range preferredSheetNames {
		for _, sheet := range sheets {
			if strings.EqualFold(strings.TrimSpace(sheet), preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}
