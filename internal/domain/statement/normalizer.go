// Package statement normalizes raw bank-statement exports (CSV or XLSX)
// into canonical bank transactions. Column roles are inferred from the
// header row, amounts are resolved across amount/debit/credit columns, and
// structured UPI narration embedded in the description is unpacked into
// reference, VPA and city fields.
package statement

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rganapathy/upi-reconciler/internal/models"
	"github.com/rganapathy/upi-reconciler/pkg/dateparse"
)

var (
	// ErrNoHeader is returned when the input has no header row at all.
	// This is the one malformed-container case that propagates; garbled
	// individual rows are dropped instead.
	ErrNoHeader = errors.New("statement: missing header row")

	// ErrNoDateColumn is returned when no column resolves to the date role.
	ErrNoDateColumn = errors.New("statement: no date column found")

	// ErrNoAmountColumn is returned when none of amount/debit/credit resolve.
	ErrNoAmountColumn = errors.New("statement: no amount, debit or credit column found")
)

// Table is a decoded tabular input: one header row plus data rows. Both the
// CSV and XLSX loaders produce this shape.
type Table struct {
	Headers []string
	Rows    [][]string
}

// columnMap holds resolved column indexes per role; -1 means unresolved.
type columnMap struct {
	date        int
	amount      int
	debit       int
	credit      int
	description int
	utr         int
}

// Ordered header candidates per role. Exact match wins over contains, and
// earlier candidates win over later ones.
var (
	dateCandidates = []string{
		"date", "txn date", "transaction date", "value date", "tran date", "posting date",
	}
	amountCandidates = []string{
		"amount", "transaction amount", "amount (inr)", "amt", "txn amount",
	}
	debitCandidates = []string{
		"debit", "withdrawal", "withdrawal amt", "debit amount", "dr amount", "dr",
	}
	creditCandidates = []string{
		"credit", "deposit", "deposit amt", "credit amount", "cr amount", "cr",
	}
	descriptionCandidates = []string{
		"description", "narration", "particulars", "details", "transaction details", "remarks",
	}
	utrCandidates = []string{
		"utr", "utr number", "ref no", "reference no", "ref no./cheque no", "cheque no", "transaction id",
	}
)

// upiNarrationRe matches the delimiter-separated narration convention:
// UPI/<8-18 digit ref>/<DR|CR>/<merchant>/<bank code>/<vpa>[/<city>]
var upiNarrationRe = regexp.MustCompile(
	`(?i)UPI/(\d{8,18})/(DR|CR)/([^/]+)/([^/]+)/([^/\s]+@[^/\s]+)(?:/([^/]+))?`)

var utrDigitsRe = regexp.MustCompile(`^\d{8,18}$`)

// Normalizer maps raw statement rows to canonical bank transactions.
type Normalizer struct{}

// NewNormalizer creates a statement normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts a decoded table into bank transactions. Rows without a
// resolvable date or a positive amount are dropped, not reported: partial
// and garbled export rows are expected.
func (n *Normalizer) Normalize(table Table) ([]models.BankTransaction, error) {
	if len(table.Headers) == 0 {
		return nil, ErrNoHeader
	}

	cols, err := resolveColumns(table.Headers)
	if err != nil {
		return nil, err
	}

	txs := make([]models.BankTransaction, 0, len(table.Rows))
	for _, row := range table.Rows {
		if tx, ok := n.normalizeRow(row, cols); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// normalizeRow converts one data row. ok is false when the row is dropped.
func (n *Normalizer) normalizeRow(row []string, cols columnMap) (models.BankTransaction, bool) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	dateStr := get(cols.date)
	if dateStr == "" {
		return models.BankTransaction{}, false
	}

	amount, ok := resolveAmount(get(cols.amount), get(cols.credit), get(cols.debit))
	if !ok {
		return models.BankTransaction{}, false
	}

	tx := models.BankTransaction{
		ID:          uuid.New(),
		Date:        dateparse.ParseString(dateStr),
		Amount:      amount,
		Description: cleanDescription(get(cols.description)),
	}

	if m := upiNarrationRe.FindStringSubmatch(tx.Description); m != nil {
		tx.UTR = m[1]
		tx.VPA = m[5]
		tx.City = strings.TrimSpace(m[6])
	}

	// An explicit UTR column beats whatever the narration carried.
	if utr := digitsOnly(get(cols.utr)); utrDigitsRe.MatchString(utr) {
		tx.UTR = utr
	}

	return tx, true
}

// resolveColumns infers column roles from the header row.
func resolveColumns(headers []string) (columnMap, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	cols := columnMap{
		date:        findColumn(normalized, dateCandidates),
		amount:      findColumn(normalized, amountCandidates),
		debit:       findColumn(normalized, debitCandidates),
		credit:      findColumn(normalized, creditCandidates),
		description: findColumn(normalized, descriptionCandidates),
		utr:         findColumn(normalized, utrCandidates),
	}

	if cols.date < 0 {
		return cols, ErrNoDateColumn
	}
	if cols.amount < 0 && cols.debit < 0 && cols.credit < 0 {
		return cols, ErrNoAmountColumn
	}
	return cols, nil
}

// findColumn returns the index of the first header matching a candidate:
// all candidates tried for an exact match first, then for whole-word
// containment. Plain substring containment is not enough; short candidates
// like "cr" and "dr" would hit inside unrelated headers such as
// "description".
func findColumn(normalized []string, candidates []string) int {
	for _, cand := range candidates {
		for i, h := range normalized {
			if h == cand {
				return i
			}
		}
	}
	for _, cand := range candidates {
		for i, h := range normalized {
			if containsToken(h, cand) {
				return i
			}
		}
	}
	return -1
}

// containsToken reports whether header contains cand bounded by
// non-alphanumeric characters on both sides.
func containsToken(header, cand string) bool {
	idx := 0
	for {
		i := strings.Index(header[idx:], cand)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(cand)
		beforeOK := start == 0 || !isAlnum(header[start-1])
		afterOK := end == len(header) || !isAlnum(header[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(h))), " ")
}

// resolveAmount applies the deterministic precedence: a non-zero amount
// column wins, then non-zero credit, then non-zero debit. The chosen value
// is taken as an absolute; unparseable or non-positive rows are dropped.
func resolveAmount(amountStr, creditStr, debitStr string) (decimal.Decimal, bool) {
	for _, s := range []string{amountStr, creditStr, debitStr} {
		if s == "" {
			continue
		}
		d, err := parseAmount(s)
		if err != nil || d.IsZero() {
			continue
		}
		return d.Abs(), true
	}
	return decimal.Zero, false
}

// parseAmount parses a cell that may carry currency symbols, thousands
// separators, or accounting-style parentheses.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"₹", "Rs.", "Rs", "INR"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.Trim(s, "()")
	}
	return decimal.NewFromString(s)
}

func cleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
