package categorization

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rganapathy/upi-reconciler/internal/models"
)

func approvedTx(desc string) models.BankTransaction {
	return models.BankTransaction{
		ID:          uuid.New(),
		Amount:      decimal.NewFromInt(450),
		Description: desc,
	}
}

func userRules(rules []models.CategoryRule) []models.CategoryRule {
	var out []models.CategoryRule
	for _, r := range rules {
		if r.CreatedBy == models.RuleOriginUser {
			out = append(out, r)
		}
	}
	return out
}

func TestLearn(t *testing.T) {
	t.Run("creates a user rule from an approval", func(t *testing.T) {
		rcpt := &models.Receipt{Merchant: "Corner Bakery"}
		out := Learn(approvedTx("UPI payment bakery order"), rcpt, models.CategoryFood, DefaultRules(), TrainingOptions{})

		created := userRules(out)
		require.Len(t, created, 1)

		r := created[0]
		assert.Equal(t, models.CategoryFood, r.Category)
		assert.Equal(t, "Learned: Corner Bakery (Food & Dining)", r.Name)
		assert.Equal(t, []string{"corner bakery"}, r.Patterns)
		assert.Contains(t, r.Keywords, "corner")
		assert.Contains(t, r.Keywords, "bakery")
		assert.InDelta(t, 0.7, r.Confidence, 0.001)
		assert.Equal(t, 1, r.UsageCount)
		assert.False(t, r.LastUsed.IsZero())
	})

	t.Run("input rules are not mutated", func(t *testing.T) {
		rules := DefaultRules()
		before := len(rules)

		_ = Learn(approvedTx("bakery order"), nil, models.CategoryFood, rules, TrainingOptions{})
		assert.Len(t, rules, before)
	})

	t.Run("repeat approval enhances instead of duplicating", func(t *testing.T) {
		rcpt := &models.Receipt{Merchant: "Corner Bakery"}
		opts := TrainingOptions{}

		out := Learn(approvedTx("bakery order"), rcpt, models.CategoryFood, DefaultRules(), opts)
		out = Learn(approvedTx("bakery order again"), rcpt, models.CategoryFood, out, opts)

		created := userRules(out)
		require.Len(t, created, 1)
		assert.Equal(t, 2, created[0].UsageCount)
	})

	t.Run("system rules are never touched", func(t *testing.T) {
		base := DefaultRules()
		out := Learn(approvedTx("swiggy order"), nil, models.CategoryShopping, base, TrainingOptions{})

		for i, r := range out {
			if r.CreatedBy != models.RuleOriginSystem {
				continue
			}
			assert.Equal(t, base[i].Confidence, r.Confidence)
			assert.Equal(t, base[i].Keywords, r.Keywords)
			assert.Equal(t, base[i].Patterns, r.Patterns)
		}
	})

	t.Run("noise words are excluded", func(t *testing.T) {
		out := Learn(approvedTx("payment from bank towards online transaction weekend groceries"), nil, models.CategoryShopping, nil, TrainingOptions{})

		require.Len(t, out, 1)
		assert.Equal(t, []string{"weekend", "groceries"}, out[0].Keywords)
	})

	t.Run("short words are excluded", func(t *testing.T) {
		out := Learn(approvedTx("the gas co bill"), nil, models.CategoryUtilities, nil, TrainingOptions{})

		require.Len(t, out, 1)
		assert.Equal(t, []string{"bill"}, out[0].Keywords)
	})

	t.Run("notes contribute at most three terms", func(t *testing.T) {
		opts := TrainingOptions{Notes: "monthly veggies subscription household pantry"}
		out := Learn(approvedTx("dmart order"), nil, models.CategoryShopping, nil, opts)

		require.Len(t, out, 1)
		kws := out[0].Keywords
		fromNotes := 0
		for _, k := range kws {
			switch k {
			case "monthly", "veggies", "subscription", "household", "pantry":
				fromNotes++
			}
		}
		assert.Equal(t, maxNoteTerms, fromNotes)
	})

	t.Run("confidence from training options", func(t *testing.T) {
		cases := []struct {
			name string
			opts TrainingOptions
			want float64
		}{
			{"default medium", TrainingOptions{}, 0.7},
			{"low", TrainingOptions{Confidence: ConfidenceLow}, 0.5},
			{"high", TrainingOptions{Confidence: ConfidenceHigh}, 0.9},
			{"recurring bonus", TrainingOptions{Recurring: true}, 0.8},
			{"bulk similar bonus", TrainingOptions{Bulk: true, ApplyToSimilar: true}, 0.75},
			{"capped", TrainingOptions{Confidence: ConfidenceHigh, Recurring: true, Bulk: true, ApplyToSimilar: true}, confidenceCap},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				out := Learn(approvedTx("bakery order"), nil, models.CategoryFood, nil, tc.opts)
				require.Len(t, out, 1)
				assert.InDelta(t, tc.want, out[0].Confidence, 0.001)
			})
		}
	})

	t.Run("enhancement never lowers confidence", func(t *testing.T) {
		rcpt := &models.Receipt{Merchant: "Corner Bakery"}

		out := Learn(approvedTx("bakery order"), rcpt, models.CategoryFood, nil, TrainingOptions{Confidence: ConfidenceHigh})
		out = Learn(approvedTx("bakery order"), rcpt, models.CategoryFood, out, TrainingOptions{Confidence: ConfidenceLow})

		created := userRules(out)
		require.Len(t, created, 1)
		assert.InDelta(t, 0.9, created[0].Confidence, 0.001)
	})

	t.Run("keyword growth is capped", func(t *testing.T) {
		rcpt := &models.Receipt{Merchant: "Corner Bakery"}
		out := Learn(approvedTx("bakery order"), rcpt, models.CategoryFood, nil, TrainingOptions{})

		descriptions := []string{
			"bakery croissant espresso latte muffin",
			"bakery sandwich cookies brownies doughnut",
			"bakery focaccia ciabatta sourdough pretzel",
			"bakery tiramisu macaron eclair cannoli",
		}
		for _, d := range descriptions {
			out = Learn(approvedTx(d), rcpt, models.CategoryFood, out, TrainingOptions{})
		}

		created := userRules(out)
		require.Len(t, created, 1)
		assert.LessOrEqual(t, len(created[0].Keywords), maxRuleKeywords)
		assert.LessOrEqual(t, len(created[0].Patterns), maxRulePatterns)
	})

	t.Run("contradiction decays the old category's user rules", func(t *testing.T) {
		rcpt := &models.Receipt{Merchant: "Corner Bakery"}

		// First the reviewer taught Shopping, then corrected to Food.
		out := Learn(approvedTx("bakery order"), rcpt, models.CategoryShopping, nil, TrainingOptions{})
		require.Len(t, out, 1)
		taughtConf := out[0].Confidence

		corrected := approvedTx("bakery order")
		corrected.Category = models.CategoryShopping
		out = Learn(corrected, rcpt, models.CategoryFood, out, TrainingOptions{})

		var shopping, food *models.CategoryRule
		for i := range out {
			switch out[i].Category {
			case models.CategoryShopping:
				shopping = &out[i]
			case models.CategoryFood:
				food = &out[i]
			}
		}
		require.NotNil(t, shopping)
		require.NotNil(t, food)
		assert.InDelta(t, taughtConf-contradictionPenalty, shopping.Confidence, 0.001)
		assert.Equal(t, 1, shopping.Metadata.CorrectionCount)
	})

	t.Run("decay never drops below the floor", func(t *testing.T) {
		rcpt := &models.Receipt{Merchant: "Corner Bakery"}
		out := Learn(approvedTx("bakery order"), rcpt, models.CategoryShopping, nil, TrainingOptions{Confidence: ConfidenceLow})

		for i := 0; i < 10; i++ {
			corrected := approvedTx("bakery order")
			corrected.Category = models.CategoryShopping
			out = Learn(corrected, rcpt, models.CategoryFood, out, TrainingOptions{})
		}

		for _, r := range userRules(out) {
			if r.Category == models.CategoryShopping {
				assert.GreaterOrEqual(t, r.Confidence, confidenceFloorDecay-0.001)
			}
		}
	})

	t.Run("learned terms are lowercased", func(t *testing.T) {
		rcpt := &models.Receipt{Merchant: "CORNER BAKERY"}
		out := Learn(approvedTx("BAKERY ORDER"), rcpt, models.CategoryFood, nil, TrainingOptions{})

		require.Len(t, out, 1)
		for _, k := range out[0].Keywords {
			assert.Equal(t, strings.ToLower(k), k)
		}
		for _, p := range out[0].Patterns {
			assert.Equal(t, strings.ToLower(p), p)
		}
	})
}
