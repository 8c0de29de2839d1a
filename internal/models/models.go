// Package models defines the canonical record shapes shared by the
// reconciliation pipeline: bank transactions normalized from statement
// exports, receipts extracted from OCR text, the matches pairing them,
// and the categorization rules that classify them.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the closed set of spending categories. Adding a category is a
// configuration change, not something the engine does at runtime.
type Category string

const (
	CategoryFood          Category = "Food & Dining"
	CategoryTravel        Category = "Travel & Transport"
	CategoryUtilities     Category = "Utilities & Bills"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryMisc          Category = "Miscellaneous"
)

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTravel,
		CategoryUtilities,
		CategoryShopping,
		CategoryEntertainment,
		CategoryHealthcare,
		CategoryEducation,
		CategoryMisc,
	}
}

// BankTransaction is a normalized statement row. Amount is always positive;
// direction is not preserved. UTR, VPA and City come from either a dedicated
// column or the structured UPI narration embedded in the description.
type BankTransaction struct {
	ID               uuid.UUID       `json:"id"`
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	UTR              string          `json:"utr,omitempty"`
	VPA              string          `json:"vpa,omitempty"`
	City             string          `json:"city,omitempty"`
	Category         Category        `json:"category,omitempty"`
	Matched          bool            `json:"matched"`
	MatchedReceiptID *uuid.UUID      `json:"matched_receipt_id,omitempty"`
}

// ExtractedData carries the OCR collaborator's output alongside the parsed
// receipt. Confidence is supplied by the OCR engine, not computed here.
type ExtractedData struct {
	Confidence float64 `json:"confidence"`
	RawText    string  `json:"raw_text"`
}

// Receipt is a canonical user-submitted payment receipt. A receipt whose
// amount could not be detected keeps Amount zero and remains matchable only
// through its UTR.
type Receipt struct {
	ID        uuid.UUID       `json:"id"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Merchant  string          `json:"merchant"`
	UTR       string          `json:"utr,omitempty"`
	Category  Category        `json:"category,omitempty"`
	Matched   bool            `json:"matched"`
	Extracted ExtractedData   `json:"extracted_data"`
}

// MatchStatus is the per-match review state. Pending is the only state that
// may transition; approved and rejected are terminal.
type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchApproved MatchStatus = "approved"
	MatchRejected MatchStatus = "rejected"
)

// TransactionMatch pairs one bank transaction with at most one receipt.
// Receipt is nil when no candidate cleared the acceptance threshold; the
// transaction is still represented so every statement row shows up exactly
// once in a matching pass.
type TransactionMatch struct {
	ID          uuid.UUID       `json:"id"`
	Transaction BankTransaction `json:"transaction"`
	Receipt     *Receipt        `json:"receipt,omitempty"`
	Score       int             `json:"match_score"`
	Reasons     []string        `json:"match_reasons"`
	Status      MatchStatus     `json:"status"`

	// Category suggested for this pair by the categorization engine.
	// Applied to the transaction on approval.
	Category           Category `json:"category,omitempty"`
	CategoryConfidence float64  `json:"category_confidence,omitempty"`
}

// RuleOrigin records who created a categorization rule. System rules ship
// with the engine and are never deleted or re-attributed; only user rules
// are created, merged, or confidence-adjusted by learning.
type RuleOrigin string

const (
	RuleOriginSystem RuleOrigin = "system"
	RuleOriginUser   RuleOrigin = "user"
)

// RuleMetadata captures learning provenance for user rules.
type RuleMetadata struct {
	IsRecurring     bool   `json:"is_recurring,omitempty"`
	ConfidenceLevel string `json:"confidence_level,omitempty"`
	CorrectionCount int    `json:"correction_count,omitempty"`
	BulkTrained     bool   `json:"bulk_trained,omitempty"`
}

// CategoryRule maps merchant/description text to a category. Patterns are
// high-precision substrings that yield the rule's flat confidence; keywords
// are lower-precision and scale with match density.
type CategoryRule struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	Category   Category     `json:"category"`
	Patterns   []string     `json:"patterns"`
	Keywords   []string     `json:"keywords"`
	Confidence float64      `json:"confidence"`
	CreatedBy  RuleOrigin   `json:"created_by"`
	UsageCount int          `json:"usage_count"`
	LastUsed   time.Time    `json:"last_used"`
	Metadata   RuleMetadata `json:"metadata,omitempty"`
}

// Clone returns a deep copy so learning can return updated rule lists
// without aliasing the caller's slices.
func (r CategoryRule) Clone() CategoryRule {
	out := r
	out.Patterns = append([]string(nil), r.Patterns...)
	out.Keywords = append([]string(nil), r.Keywords...)
	return out
}

// CloneRules deep-copies a rule list.
func CloneRules(rules []CategoryRule) []CategoryRule {
	out := make([]CategoryRule, len(rules))
	for i, r := range rules {
		out[i] = r.Clone()
	}
	return out
}
