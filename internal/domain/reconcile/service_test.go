package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rganapathy/upi-reconciler/internal/domain/categorization"
	"github.com/rganapathy/upi-reconciler/internal/domain/matching"
	"github.com/rganapathy/upi-reconciler/internal/domain/statement"
	"github.com/rganapathy/upi-reconciler/internal/models"
)

func newTestService() *Service {
	return NewService(nil, matching.Weights{}, 0, nil)
}

func statementFixture() statement.Table {
	return statement.Table{
		Headers: []string{"Txn Date", "Narration", "Amount"},
		Rows: [][]string{
			{"05/03/2024", "UPI/403881234567/DR/SWIGGY/HDFC/swiggy@icici/BANGALORE", "450.00"},
			{"06/03/2024", "NEFT SALARY CREDIT", "52,000.00"},
		},
	}
}

func receiptFixture() []OCRInput {
	return []OCRInput{{
		Text:       "Payment Successful\nSwiggy\n₹ 450.00\nUTR: 403881234567\n05/03/2024",
		Confidence: 0.92,
	}}
}

func TestService_Run(t *testing.T) {
	svc := newTestService()

	result, err := svc.Run(statementFixture(), receiptFixture())
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2)
	require.Len(t, result.Receipts, 1)
	require.Len(t, result.Matches, 2)

	// Sorted by score: the swiggy pairing first.
	best := result.Matches[0]
	require.NotNil(t, best.Receipt)
	assert.Equal(t, 120, best.Score)
	assert.Equal(t, "Swiggy", best.Receipt.Merchant)
	assert.Equal(t, models.CategoryFood, best.Category)
	assert.Greater(t, best.CategoryConfidence, 0.0)

	// The salary row finds no receipt but still appears.
	assert.Nil(t, result.Matches[1].Receipt)
	assert.True(t, result.Matches[1].Transaction.Amount.Equal(decimal.NewFromInt(52000)))
}

func TestService_Run_BadStatement(t *testing.T) {
	svc := newTestService()

	_, err := svc.Run(statement.Table{}, nil)
	assert.ErrorIs(t, err, statement.ErrNoHeader)
}

func TestService_ApproveLearnsRule(t *testing.T) {
	svc := newTestService()

	result, err := svc.Run(statementFixture(), receiptFixture())
	require.NoError(t, err)

	before := len(svc.Rules())

	approved, err := svc.Approve(result.Matches[0], "", categorization.TrainingOptions{Recurring: true})
	require.NoError(t, err)
	assert.Equal(t, models.MatchApproved, approved.Status)
	assert.True(t, approved.Transaction.Matched)
	assert.Equal(t, models.CategoryFood, approved.Transaction.Category)

	rules := svc.Rules()
	require.Len(t, rules, before+1)

	learned := rules[len(rules)-1]
	assert.Equal(t, models.RuleOriginUser, learned.CreatedBy)
	assert.Equal(t, models.CategoryFood, learned.Category)
	assert.True(t, learned.Metadata.IsRecurring)
}

func TestService_OverrideDecaysContradictedRule(t *testing.T) {
	svc := newTestService()

	// First approval teaches a user Food rule for Swiggy.
	result, err := svc.Run(statementFixture(), receiptFixture())
	require.NoError(t, err)
	_, err = svc.Approve(result.Matches[0], "", categorization.TrainingOptions{})
	require.NoError(t, err)

	userFoodConfidence := func() float64 {
		for _, r := range svc.Rules() {
			if r.CreatedBy == models.RuleOriginUser && r.Category == models.CategoryFood {
				return r.Confidence
			}
		}
		t.Fatal("no user rule for Food & Dining")
		return 0
	}
	taught := userFoodConfidence()

	// A later pass auto-suggests Food again; the reviewer overrides to
	// Shopping, contradicting the rule that backed the suggestion.
	result, err = svc.Run(statementFixture(), receiptFixture())
	require.NoError(t, err)
	require.Equal(t, models.CategoryFood, result.Matches[0].Category)

	_, err = svc.Approve(result.Matches[0], models.CategoryShopping, categorization.TrainingOptions{})
	require.NoError(t, err)

	assert.InDelta(t, taught-0.1, userFoodConfidence(), 0.001)

	for _, r := range svc.Rules() {
		if r.CreatedBy == models.RuleOriginUser && r.Category == models.CategoryFood {
			assert.Equal(t, 1, r.Metadata.CorrectionCount)
		}
	}
}

func TestService_RulesCarryUsageCounters(t *testing.T) {
	svc := newTestService()

	systemFoodUsage := func() int {
		total := 0
		for _, r := range svc.Rules() {
			if r.CreatedBy == models.RuleOriginSystem && r.Category == models.CategoryFood {
				total += r.UsageCount
			}
		}
		return total
	}

	// Each pass classifies the swiggy pairing through the system Food rule.
	var result *Result
	for i := 0; i < 3; i++ {
		var err error
		result, err = svc.Run(statementFixture(), receiptFixture())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, systemFoodUsage())

	// The post-approval rebuild must not wipe the counters.
	_, err := svc.Approve(result.Matches[0], "", categorization.TrainingOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, systemFoodUsage())
}

func TestService_ApproveOverride(t *testing.T) {
	svc := newTestService()

	result, err := svc.Run(statementFixture(), receiptFixture())
	require.NoError(t, err)

	approved, err := svc.Approve(result.Matches[0], models.CategoryShopping, categorization.TrainingOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryShopping, approved.Category)
	assert.Equal(t, models.CategoryShopping, approved.Transaction.Category)
}

func TestService_ReviewedExcludedFromRematch(t *testing.T) {
	svc := newTestService()

	result, err := svc.Run(statementFixture(), receiptFixture())
	require.NoError(t, err)

	rejected, err := svc.Reject(result.Matches[0])
	require.NoError(t, err)
	assert.Equal(t, models.MatchRejected, rejected.Status)
	// Rejection does not consume the transaction.
	assert.False(t, rejected.Transaction.Matched)

	rematches, err := svc.Rematch(result.Transactions, result.Receipts)
	require.NoError(t, err)

	for _, m := range rematches {
		assert.NotEqual(t, rejected.Transaction.ID, m.Transaction.ID,
			"rejected transaction must not be re-proposed")
	}
}

func TestService_ApproveTwiceFails(t *testing.T) {
	svc := newTestService()

	result, err := svc.Run(statementFixture(), receiptFixture())
	require.NoError(t, err)

	approved, err := svc.Approve(result.Matches[0], "", categorization.TrainingOptions{})
	require.NoError(t, err)

	_, err = svc.Approve(approved, "", categorization.TrainingOptions{})
	assert.ErrorIs(t, err, matching.ErrNotPending)
}
