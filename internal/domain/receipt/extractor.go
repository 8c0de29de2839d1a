// Package receipt parses unstructured OCR text from UPI payment-app
// screenshots into canonical receipts. The OCR engine itself is an external
// collaborator: it supplies raw text plus a confidence score, and this
// package does the structural extraction of amount, reference, date and
// merchant, with best-effort defaults instead of hard failures.
package receipt

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rganapathy/upi-reconciler/internal/models"
	"github.com/rganapathy/upi-reconciler/pkg/dateparse"
)

// DefaultMerchant is used when no merchant line can be found. Never an
// empty string: downstream display and matching rely on a non-empty name.
const DefaultMerchant = "Unknown Merchant"

// Currency-marked or labeled amounts. Receipts often show several figures
// (line total, fee breakdown, amount paid); the largest is authoritative.
var amountRes = []*regexp.Regexp{
	regexp.MustCompile(`₹\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`),
	regexp.MustCompile(`(?i)\b(?:amount|paid|total|rs)\b\.?\s*[:\-]?\s*₹?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`),
}

// Labeled 12-digit references win over bare ones found anywhere in the text.
var (
	labeledUTRRe = regexp.MustCompile(
		`(?i)(?:transaction\s*id|txn\s*id|utr(?:\s*(?:no|number))?|ref(?:erence)?(?:\s*(?:no|id|number))?)\s*[:#\-]?\s*(\d{12})`)
	bareUTRRe = regexp.MustCompile(`\b(\d{12})\b`)
)

// Date forms tried in order; the first hit is handed to the date parser.
var dateRes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),
	regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}\s+[A-Za-z]{3,9}\s+\d{4}\b`),
}

// Receipt boilerplate that disqualifies a line from being the merchant,
// including the payment apps' own names.
var merchantStoplist = []string{
	"payment", "successful", "transaction", "receipt", "id", "ref",
	"date", "via", "from", "total", "amount",
	"paytm", "phonepe", "gpay", "google pay", "bhim", "upi",
}

var (
	merchantShapeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9&.'\- ]{2,49}$`)
	longDigitRunRe  = regexp.MustCompile(`\d{6,}`)
	labeledNameRe   = regexp.MustCompile(`(?i)(?:paid\s*to|to|merchant)\s*[:\-]\s*(.{3,60})`)
	genericNameRe   = regexp.MustCompile(`^[A-Z][a-zA-Z ]{2,40}$`)
)

// Extractor parses OCR text into canonical receipts.
type Extractor struct{}

// NewExtractor creates a receipt text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses raw OCR text into a receipt. Missing fields default
// rather than fail: a receipt with no detectable amount stays at zero and
// is matchable only through its UTR, and a missing merchant becomes
// DefaultMerchant so the record can still be surfaced for manual fixup.
func (e *Extractor) Extract(rawText string, confidence float64) models.Receipt {
	return models.Receipt{
		ID:       uuid.New(),
		Date:     extractDate(rawText),
		Amount:   extractAmount(rawText),
		Merchant: extractMerchant(rawText),
		UTR:      extractUTR(rawText),
		Extracted: models.ExtractedData{
			Confidence: confidence,
			RawText:    rawText,
		},
	}
}

// extractAmount scans for every currency-marked number and keeps the
// maximum. Smaller figures on a receipt are partials or fee breakdowns.
func extractAmount(text string) decimal.Decimal {
	best := decimal.Zero
	for _, re := range amountRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(m[1], ",", "")
			d, err := decimal.NewFromString(raw)
			if err != nil {
				continue
			}
			if d.GreaterThan(best) {
				best = d
			}
		}
	}
	return best
}

func extractUTR(text string) string {
	if m := labeledUTRRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareUTRRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractDate(text string) time.Time {
	for _, re := range dateRes {
		if m := re.FindString(text); m != "" {
			return dateparse.ParseString(m)
		}
	}
	return dateparse.ParseString("")
}

// extractMerchant scans line by line for a plausible merchant name, then
// falls back to labeled patterns and finally a generic name shape.
func extractMerchant(text string) string {
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if isMerchantLine(line) {
			if name := NormalizeMerchant(line); name != "" {
				return name
			}
		}
	}

	for _, line := range lines {
		if m := labeledNameRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if name := NormalizeMerchant(strings.TrimSpace(m[1])); name != "" {
				return name
			}
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if genericNameRe.MatchString(line) {
			if name := NormalizeMerchant(line); name != "" {
				return name
			}
		}
	}

	return DefaultMerchant
}

// isMerchantLine applies the heuristics that separate a merchant name from
// receipt boilerplate.
func isMerchantLine(line string) bool {
	if len(line) < 3 || len(line) > 50 {
		return false
	}
	lower := strings.ToLower(line)
	for _, stop := range merchantStoplist {
		if containsWord(lower, stop) {
			return false
		}
	}
	if strings.ContainsAny(line, "₹@") {
		return false
	}
	if longDigitRunRe.MatchString(line) {
		return false
	}
	return merchantShapeRe.MatchString(line)
}

// containsWord reports whether text contains w as a whole word. Plain
// substring checks would reject names like "Ideal Stores" on "id".
func containsWord(text, w string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isAlnum(text[start-1])
		afterOK := end == len(text) || !isAlnum(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
