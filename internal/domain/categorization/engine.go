// Package categorization assigns a spending category to transaction and
// receipt text using a prioritized, confidence-weighted rule set, and
// improves that rule set from human-approved corrections.
package categorization

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudflare/ahocorasick"

	"github.com/rganapathy/upi-reconciler/internal/models"
)

// ErrNoRules is returned when a classification is requested against an
// empty rule set. That is a caller wiring bug, not a data condition.
var ErrNoRules = errors.New("categorization: empty rule set")

// ConfidenceFloor is the minimum confidence required to return a category.
// Below it the engine declines to guess.
const ConfidenceFloor = 0.5

// keywordCap deliberately keeps keyword-only matches below pattern matches:
// a keyword hit can never exceed 70% of the rule's own confidence.
const keywordCap = 0.7

// Classification is a successful categorization outcome.
type Classification struct {
	Category   models.Category
	Confidence float64
	Rule       models.CategoryRule
}

// termRef maps a matched automaton term back to the rule and slot it came
// from. The same term may belong to several rules.
type termRef struct {
	ruleIdx    int
	isPattern  bool
	keywordIdx int
}

// Engine matches every pattern and keyword of every rule in a single pass
// using an Aho-Corasick automaton. Scan time is independent of the number
// of rules, which matters once learning has grown the rule set.
type Engine struct {
	mu      sync.Mutex
	rules   []models.CategoryRule
	matcher *ahocorasick.Matcher
	terms   []string
	refs    [][]termRef
}

// NewEngine builds a categorization engine over the given rules.
func NewEngine(rules []models.CategoryRule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build reconstructs the automaton. Call it whenever the rule set changes;
// the swap is atomic with respect to concurrent Classify calls.
func (e *Engine) Build(rules []models.CategoryRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = models.CloneRules(rules)
	e.terms = nil
	e.refs = nil
	e.matcher = nil

	termToIdx := make(map[string]int)
	add := func(term string, ref termRef) {
		term = strings.ToUpper(strings.TrimSpace(term))
		if term == "" {
			return
		}
		if idx, ok := termToIdx[term]; ok {
			e.refs[idx] = append(e.refs[idx], ref)
			return
		}
		termToIdx[term] = len(e.terms)
		e.terms = append(e.terms, term)
		e.refs = append(e.refs, []termRef{ref})
	}

	for ri := range e.rules {
		for _, p := range e.rules[ri].Patterns {
			add(p, termRef{ruleIdx: ri, isPattern: true})
		}
		for ki, k := range e.rules[ri].Keywords {
			add(k, termRef{ruleIdx: ri, keywordIdx: ki})
		}
	}

	if len(e.terms) > 0 {
		byteTerms := make([][]byte, len(e.terms))
		for i, t := range e.terms {
			byteTerms[i] = []byte(t)
		}
		e.matcher = ahocorasick.NewMatcher(byteTerms)
	}
}

// Rules returns a snapshot of the engine's rule set, including the usage
// counters updated by successful classifications.
func (e *Engine) Rules() []models.CategoryRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CloneRules(e.rules)
}

// RuleCount returns the number of loaded rules.
func (e *Engine) RuleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rules)
}

// Classify categorizes a merchant-or-description text. Any pattern hit
// yields the rule's flat confidence; keyword hits scale with match density
// and stay capped below pattern hits. The best hit across all rules wins,
// and only if it clears the confidence floor; otherwise nil is returned
// rather than a guess. The winning rule's usage counters are updated.
func (e *Engine) Classify(text string) (*Classification, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rules) == 0 {
		return nil, ErrNoRules
	}
	if e.matcher == nil {
		return nil, nil
	}

	hits := e.matcher.Match([]byte(strings.ToUpper(text)))
	if len(hits) == 0 {
		return nil, nil
	}

	patternHit := make(map[int]bool)
	keywordHits := make(map[int]map[int]bool)
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.refs) {
			continue
		}
		for _, ref := range e.refs[idx] {
			if ref.isPattern {
				patternHit[ref.ruleIdx] = true
				continue
			}
			if keywordHits[ref.ruleIdx] == nil {
				keywordHits[ref.ruleIdx] = make(map[int]bool)
			}
			keywordHits[ref.ruleIdx][ref.keywordIdx] = true
		}
	}

	bestIdx := -1
	bestConf := 0.0
	for ri := range e.rules {
		rule := &e.rules[ri]

		var conf float64
		switch {
		case patternHit[ri]:
			conf = rule.Confidence
		case len(keywordHits[ri]) > 0 && len(rule.Keywords) > 0:
			density := float64(len(keywordHits[ri])) / float64(len(rule.Keywords)) * rule.Confidence
			conf = min(rule.Confidence*keywordCap, density)
		default:
			continue
		}

		if conf > bestConf {
			bestConf = conf
			bestIdx = ri
		}
	}

	if bestIdx < 0 || bestConf < ConfidenceFloor {
		return nil, nil
	}

	e.rules[bestIdx].UsageCount++
	e.rules[bestIdx].LastUsed = time.Now().UTC()

	return &Classification{
		Category:   e.rules[bestIdx].Category,
		Confidence: bestConf,
		Rule:       e.rules[bestIdx].Clone(),
	}, nil
}
