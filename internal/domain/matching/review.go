package matching

import (
	"errors"

	"github.com/rganapathy/upi-reconciler/internal/models"
)

// ErrNotPending is returned when approving or rejecting a match that has
// already been reviewed. Approved and rejected are terminal states.
var ErrNotPending = errors.New("matching: match is not pending")

// Approve transitions a pending match to approved, applies the match's
// category to the transaction, and marks both sides consumed. The input is
// taken by value and the updated match returned, so callers decide what to
// do with their own collections.
func Approve(m models.TransactionMatch) (models.TransactionMatch, error) {
	if m.Status != models.MatchPending {
		return m, ErrNotPending
	}

	m.Status = models.MatchApproved
	m.Transaction.Matched = true
	if m.Category != "" {
		m.Transaction.Category = m.Category
	}

	if m.Receipt != nil {
		r := *m.Receipt
		r.Matched = true
		if m.Category != "" {
			r.Category = m.Category
		}
		rid := r.ID
		m.Transaction.MatchedReceiptID = &rid
		m.Receipt = &r
	}

	return m, nil
}

// Reject transitions a pending match to rejected. The underlying records
// are left untouched; the reviewer decided the suggested pairing is wrong,
// not that the transaction is settled.
func Reject(m models.TransactionMatch) (models.TransactionMatch, error) {
	if m.Status != models.MatchPending {
		return m, ErrNotPending
	}
	m.Status = models.MatchRejected
	return m, nil
}
