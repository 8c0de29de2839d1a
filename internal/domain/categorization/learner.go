package categorization

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rganapathy/upi-reconciler/internal/models"
)

// ConfidenceLevel expresses how sure the reviewer is about a correction.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// TrainingOptions carries structured reviewer feedback alongside an
// approval. These used to be bracket markers embedded in free-text notes;
// they are explicit fields here so the notes stay prose.
type TrainingOptions struct {
	Bulk           bool            // part of a bulk-training session
	Recurring      bool            // reviewer marked the payment recurring
	ApplyToSimilar bool            // reviewer asked to apply to similar records
	Confidence     ConfidenceLevel // defaults to medium
	Notes          string          // free-text, mined for extra keywords
}

// Rule growth caps. Enhancement keeps rules focused instead of letting one
// rule absorb every word it ever saw.
const (
	maxRuleKeywords    = 15
	maxRulePatterns    = 10
	maxNewRuleKeywords = 10
	maxNoteTerms       = 3

	minKeywordLen = 4

	contradictionPenalty = 0.1
	confidenceFloorDecay = 0.3
	confidenceCap        = 0.95
)

// Words too generic to discriminate between categories.
var noiseWords = map[string]bool{
	"payment": true, "paid": true, "from": true, "with": true, "this": true,
	"that": true, "your": true, "have": true, "been": true, "online": true,
	"transaction": true, "transfer": true, "bank": true, "account": true,
	"upi": true, "towards": true, "successful": true,
}

// Learn folds one human-approved categorization into the rule set and
// returns the updated list; the input slice is never mutated. An existing
// user rule for the category that shares evidence is enhanced in place,
// otherwise a new user rule is created. When the transaction previously
// carried a different auto-assigned category, user rules backing that old
// category lose confidence, so contradicted rules fade rather than vanish.
func Learn(tx models.BankTransaction, rcpt *models.Receipt, approved models.Category, rules []models.CategoryRule, opts TrainingOptions) []models.CategoryRule {
	out := models.CloneRules(rules)

	merchant := ""
	if rcpt != nil {
		merchant = strings.TrimSpace(rcpt.Merchant)
	}

	keywords := keywordCandidates(merchant, tx.Description, opts.Notes)
	seed := patternSeed(merchant, keywords)
	confidence := trainedConfidence(opts)
	now := time.Now().UTC()

	enhanced := false
	for i := range out {
		r := &out[i]
		if r.CreatedBy != models.RuleOriginUser || r.Category != approved {
			continue
		}
		if !sharesEvidence(*r, keywords, seed) {
			continue
		}

		r.Keywords = mergeTerms(r.Keywords, keywords, maxRuleKeywords)
		if seed != "" {
			r.Patterns = mergeTerms(r.Patterns, []string{seed}, maxRulePatterns)
		}
		r.UsageCount++
		if confidence > r.Confidence {
			r.Confidence = confidence
		}
		r.LastUsed = now
		r.Metadata.IsRecurring = r.Metadata.IsRecurring || opts.Recurring
		r.Metadata.BulkTrained = r.Metadata.BulkTrained || opts.Bulk
		r.Metadata.ConfidenceLevel = string(level(opts))
		enhanced = true
		break
	}

	if !enhanced {
		newRule := models.CategoryRule{
			ID:         uuid.New(),
			Name:       deriveRuleName(merchant, approved),
			Category:   approved,
			Confidence: confidence,
			CreatedBy:  models.RuleOriginUser,
			UsageCount: 1,
			LastUsed:   now,
			Metadata: models.RuleMetadata{
				IsRecurring:     opts.Recurring,
				BulkTrained:     opts.Bulk,
				ConfidenceLevel: string(level(opts)),
			},
		}
		if seed != "" {
			newRule.Patterns = []string{seed}
		}
		if len(keywords) > maxNewRuleKeywords {
			keywords = keywords[:maxNewRuleKeywords]
		}
		newRule.Keywords = keywords
		out = append(out, newRule)
	}

	// Contradiction decay: the reviewer just overruled a previous
	// auto-assigned category, so weaken the user rules that backed it.
	if tx.Category != "" && tx.Category != approved {
		for i := range out {
			r := &out[i]
			if r.CreatedBy != models.RuleOriginUser || r.Category != tx.Category {
				continue
			}
			if !sharesEvidence(*r, keywords, seed) {
				continue
			}
			r.Confidence -= contradictionPenalty
			if r.Confidence < confidenceFloorDecay {
				r.Confidence = confidenceFloorDecay
			}
			r.Metadata.CorrectionCount++
		}
	}

	return out
}

// trainedConfidence maps reviewer feedback to a rule confidence.
func trainedConfidence(opts TrainingOptions) float64 {
	var conf float64
	switch level(opts) {
	case ConfidenceLow:
		conf = 0.5
	case ConfidenceHigh:
		conf = 0.9
	default:
		conf = 0.7
	}
	if opts.Recurring {
		conf += 0.1
	}
	if opts.Bulk && opts.ApplyToSimilar {
		conf += 0.05
	}
	if conf > confidenceCap {
		conf = confidenceCap
	}
	return conf
}

func level(opts TrainingOptions) ConfidenceLevel {
	switch opts.Confidence {
	case ConfidenceLow, ConfidenceHigh:
		return opts.Confidence
	default:
		return ConfidenceMedium
	}
}

// keywordCandidates builds the evidence set: merchant and description words
// longer than three characters, plus up to three terms from the reviewer's
// notes, minus noise and duplicates. Order is preserved.
func keywordCandidates(merchant, description, notes string) []string {
	seen := make(map[string]bool)
	var out []string

	collect := func(text string, limit int) {
		added := 0
		for _, w := range strings.Fields(strings.ToLower(text)) {
			w = strings.Trim(w, ".,:;()[]-*#@/")
			if len(w) < minKeywordLen || noiseWords[w] || seen[w] {
				continue
			}
			if limit > 0 && added >= limit {
				return
			}
			seen[w] = true
			out = append(out, w)
			added++
		}
	}

	collect(merchant, 0)
	collect(description, 0)
	collect(notes, maxNoteTerms)
	return out
}

// patternSeed picks the high-precision pattern for a learned rule: the
// merchant name when known, else the strongest keyword.
func patternSeed(merchant string, keywords []string) string {
	if merchant != "" {
		return strings.ToLower(merchant)
	}
	if len(keywords) > 0 {
		return keywords[0]
	}
	return ""
}

// sharesEvidence reports whether a rule overlaps the new evidence by
// keyword or by pattern.
func sharesEvidence(r models.CategoryRule, keywords []string, seed string) bool {
	kwSet := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		kwSet[k] = true
	}
	for _, k := range r.Keywords {
		if kwSet[strings.ToLower(k)] {
			return true
		}
	}
	for _, p := range r.Patterns {
		p = strings.ToLower(p)
		if seed != "" && (strings.Contains(seed, p) || strings.Contains(p, seed)) {
			return true
		}
		if kwSet[p] {
			return true
		}
	}
	return false
}

// mergeTerms appends new terms not already present, up to limit.
func mergeTerms(existing, incoming []string, limit int) []string {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[strings.ToLower(t)] = true
	}
	for _, t := range incoming {
		if len(existing) >= limit {
			break
		}
		lt := strings.ToLower(t)
		if seen[lt] {
			continue
		}
		seen[lt] = true
		existing = append(existing, lt)
	}
	return existing
}

func deriveRuleName(merchant string, cat models.Category) string {
	if merchant == "" {
		merchant = "learned terms"
	}
	return fmt.Sprintf("Learned: %s (%s)", merchant, cat)
}
