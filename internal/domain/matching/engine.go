// Package matching pairs bank transactions with receipts using a weighted
// multi-criterion score. The matcher is greedy: each transaction takes the
// best not-yet-consumed receipt above the acceptance threshold, scanning in
// input order. Ties go to the first-seen receipt. This is deterministic but
// not a globally optimal assignment; a receipt can be claimed by an earlier
// transaction even when a later one would score higher. That mirrors the
// intended review workflow, where a human confirms every pairing anyway.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/rganapathy/upi-reconciler/internal/models"
	"github.com/rganapathy/upi-reconciler/pkg/dateparse"
)

// Weights holds the per-criterion score contributions. Exact amount is the
// dominant criterion; UTR equality is the strongest identifier but is often
// absent on one side, so it ranks second. The UTR weight must clear the
// acceptance threshold on its own so amountless receipts stay matchable.
type Weights struct {
	ExactAmount int
	UTR         int
	SameDay     int
	AdjacentDay int
	Merchant    int
}

// DefaultWeights returns the standard criterion weights.
func DefaultWeights() Weights {
	return Weights{
		ExactAmount: 50,
		UTR:         40,
		SameDay:     20,
		AdjacentDay: 10,
		Merchant:    10,
	}
}

// DefaultMinScore is the minimum score a pair must reach before the receipt
// is consumed.
const DefaultMinScore = 40

// Amounts within one paisa are considered equal.
var amountTolerance = decimal.NewFromFloat(0.01)

// Merchant words shorter than this are ignored during overlap checks to
// avoid matching stray short tokens.
const minOverlapWordLen = 4

// Engine scores and selects transaction/receipt pairs.
type Engine struct {
	weights  Weights
	minScore int
}

// NewEngine creates a matching engine. Zero weights fall back to defaults.
func NewEngine(weights Weights, minScore int) *Engine {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Engine{weights: weights, minScore: minScore}
}

// Match pairs each unmatched transaction with at most one unmatched
// receipt. Every transaction appears exactly once in the output; those with
// no acceptable candidate get a nil receipt and score zero. The result is
// sorted by descending score and each receipt is consumed at most once.
func (e *Engine) Match(transactions []models.BankTransaction, receipts []models.Receipt) []models.TransactionMatch {
	consumed := make(map[uuid.UUID]bool, len(receipts))
	matches := make([]models.TransactionMatch, 0, len(transactions))

	for _, tx := range transactions {
		if tx.Matched {
			continue
		}

		bestScore := 0
		bestIdx := -1
		var bestReasons []string

		for i := range receipts {
			r := &receipts[i]
			if r.Matched || consumed[r.ID] {
				continue
			}
			score, reasons := e.score(tx, r)
			if score > bestScore {
				bestScore = score
				bestIdx = i
				bestReasons = reasons
			}
		}

		m := models.TransactionMatch{
			ID:          uuid.New(),
			Transaction: tx,
			Status:      models.MatchPending,
		}

		if bestIdx >= 0 && bestScore >= e.minScore {
			r := receipts[bestIdx]
			consumed[r.ID] = true
			m.Receipt = &r
			m.Score = bestScore
			m.Reasons = bestReasons
		} else {
			m.Reasons = []string{"no receipt candidate cleared the acceptance threshold"}
		}

		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// score computes the cumulative weighted score for one pair, with a
// human-readable reason per criterion that contributed.
func (e *Engine) score(tx models.BankTransaction, r *models.Receipt) (int, []string) {
	score := 0
	var reasons []string

	if tx.Amount.Sub(r.Amount).Abs().LessThan(amountTolerance) {
		score += e.weights.ExactAmount
		reasons = append(reasons, fmt.Sprintf("amount matches (%s)", tx.Amount.StringFixed(2)))
	}

	if tx.UTR != "" && tx.UTR == r.UTR {
		score += e.weights.UTR
		reasons = append(reasons, fmt.Sprintf("UTR matches (%s)", tx.UTR))
	}

	switch {
	case dateparse.SameDay(tx.Date, r.Date):
		score += e.weights.SameDay
		reasons = append(reasons, "same date")
	case dateparse.DaysApart(tx.Date, r.Date) == 1:
		// Settlement lag: the bank often posts a day after the payment.
		score += e.weights.AdjacentDay
		reasons = append(reasons, "dates one day apart")
	}

	if merchantOverlaps(r.Merchant, tx.Description) {
		score += e.weights.Merchant
		reasons = append(reasons, fmt.Sprintf("merchant %q appears in description", r.Merchant))
	}

	return score, reasons
}

// merchantOverlaps reports whether any sufficiently long merchant word
// appears in the description, either verbatim or as a close fuzzy match
// (OCR output tends to mangle a character or two).
func merchantOverlaps(merchant, description string) bool {
	if merchant == "" || description == "" {
		return false
	}

	desc := strings.ToLower(description)
	descTokens := tokenize(desc)

	for _, word := range tokenize(strings.ToLower(merchant)) {
		if len(word) < minOverlapWordLen {
			continue
		}
		if strings.Contains(desc, word) {
			return true
		}
		for _, token := range descTokens {
			if rank := fuzzy.RankMatchNormalizedFold(word, token); rank >= 0 && rank <= 2 {
				return true
			}
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}
