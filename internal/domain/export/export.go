// Package export flattens approved matches into tabular rows and
// serializes them to CSV or XLSX for downstream review tooling. This is a
// pure projection of already-computed matches; nothing here re-scores or
// re-categorizes.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rganapathy/upi-reconciler/internal/models"
	"github.com/rganapathy/upi-reconciler/pkg/dateparse"
)

// Row is one flattened match. Tags drive the gocsv header row.
type Row struct {
	Date        string `csv:"date"`
	Amount      string `csv:"amount"`
	AmountINR   string `csv:"amount_inr"`
	UTR         string `csv:"utr"`
	Merchant    string `csv:"merchant"`
	VPA         string `csv:"vpa"`
	City        string `csv:"city"`
	Category    string `csv:"category"`
	Description string `csv:"description"`
	MatchScore  int    `csv:"match_score"`
	Reasons     string `csv:"match_reasons"`
}

// Flatten projects approved matches into export rows. Pending and rejected
// matches are skipped: exports represent settled reconciliations only.
func Flatten(matches []models.TransactionMatch) []Row {
	rows := make([]Row, 0, len(matches))
	for _, m := range matches {
		if m.Status != models.MatchApproved {
			continue
		}

		row := Row{
			Date:        dateparse.ISO(m.Transaction.Date),
			Amount:      m.Transaction.Amount.StringFixed(2),
			AmountINR:   displayINR(m.Transaction.Amount),
			UTR:         m.Transaction.UTR,
			VPA:         m.Transaction.VPA,
			City:        m.Transaction.City,
			Category:    string(m.Transaction.Category),
			Description: m.Transaction.Description,
			MatchScore:  m.Score,
			Reasons:     strings.Join(m.Reasons, "; "),
		}
		if m.Receipt != nil {
			row.Merchant = m.Receipt.Merchant
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV serializes approved matches as CSV.
func WriteCSV(w io.Writer, matches []models.TransactionMatch) error {
	rows := Flatten(matches)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing csv export: %w", err)
	}
	return nil
}

// xlsxHeaders must stay aligned with the Row field order.
var xlsxHeaders = []interface{}{
	"date", "amount", "amount_inr", "utr", "merchant", "vpa", "city",
	"category", "description", "match_score", "match_reasons",
}

// WriteXLSX serializes approved matches as a single-sheet workbook.
func WriteXLSX(w io.Writer, matches []models.TransactionMatch) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reconciled"
	f.SetSheetName(f.GetSheetName(0), sheet)

	if err := f.SetSheetRow(sheet, "A1", &xlsxHeaders); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	for i, row := range Flatten(matches) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("computing cell name: %w", err)
		}
		values := []interface{}{
			row.Date, row.Amount, row.AmountINR, row.UTR, row.Merchant,
			row.VPA, row.City, row.Category, row.Description,
			row.MatchScore, row.Reasons,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// displayINR renders an amount the way the review UI shows it, via
// go-money's locale-aware formatting.
func displayINR(amount decimal.Decimal) string {
	paise := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(paise, money.INR).Display()
}
