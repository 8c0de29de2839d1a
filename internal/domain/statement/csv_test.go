package statement

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadCSV(t *testing.T) {
	t.Run("comma delimited", func(t *testing.T) {
		in := `Date,Description,Amount
05/03/2024,UPI payment,450.00
06/03/2024,NEFT,"1,250.50"`

		table, err := LoadCSV(strings.NewReader(in), LoadOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Description", "Amount"}, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "1,250.50", table.Rows[1][2])
	})

	t.Run("semicolon auto-detected", func(t *testing.T) {
		in := "Date;Description;Amount\n05/03/2024;UPI payment;450.00\n"

		table, err := LoadCSV(strings.NewReader(in), LoadOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Description", "Amount"}, table.Headers)
		require.Len(t, table.Rows, 1)
	})

	t.Run("skips preamble lines", func(t *testing.T) {
		in := `Account Statement
Customer: 000123
Date,Description,Amount
05/03/2024,UPI payment,450.00`

		table, err := LoadCSV(strings.NewReader(in), LoadOptions{SkipLines: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Description", "Amount"}, table.Headers)
		require.Len(t, table.Rows, 1)
	})

	t.Run("ragged rows survive", func(t *testing.T) {
		in := "Date,Description,Amount\n05/03/2024,short row\n06/03/2024,full row,100.00\n"

		table, err := LoadCSV(strings.NewReader(in), LoadOptions{})
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := LoadCSV(strings.NewReader(""), LoadOptions{})
		assert.ErrorIs(t, err, ErrNoHeader)
	})
}

func TestLoadExcel(t *testing.T) {
	buildWorkbook := func(t *testing.T, sheet string, rows [][]interface{}) *bytes.Reader {
		t.Helper()
		f := excelize.NewFile()
		defer f.Close()
		require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))
		return bytes.NewReader(buf.Bytes())
	}

	t.Run("reads header and rows", func(t *testing.T) {
		r := buildWorkbook(t, "Statement", [][]interface{}{
			{"Date", "Description", "Amount"},
			{"05/03/2024", "UPI payment", "450.00"},
		})

		table, err := LoadExcel(r, LoadOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Description", "Amount"}, table.Headers)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "UPI payment", table.Rows[0][1])
	})

	t.Run("skip lines", func(t *testing.T) {
		r := buildWorkbook(t, "Sheet1", [][]interface{}{
			{"Account Statement"},
			{"Date", "Description", "Amount"},
			{"05/03/2024", "UPI payment", "450.00"},
		})

		table, err := LoadExcel(r, LoadOptions{SkipLines: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Description", "Amount"}, table.Headers)
		require.Len(t, table.Rows, 1)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := LoadExcel(strings.NewReader("not a workbook"), LoadOptions{})
		assert.Error(t, err)
	})
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', detectDelimiter("a,b,c"))
	assert.Equal(t, ';', detectDelimiter("a;b;c"))
	assert.Equal(t, '\t', detectDelimiter("a\tb\tc"))
	assert.Equal(t, '|', detectDelimiter("a|b|c"))
	// Comma wins ties.
	assert.Equal(t, ',', detectDelimiter("a,b;c"))
}
