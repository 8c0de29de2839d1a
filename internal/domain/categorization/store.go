package categorization

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rganapathy/upi-reconciler/internal/models"
)

// Store holds the current rule list behind a single-writer replace
// operation. Learning reads a snapshot, computes an updated list, and
// swaps it in atomically; concurrent approvals must be serialized by the
// caller, since enhance-in-place reads the full list before writing it.
type Store struct {
	mu    sync.RWMutex
	rules []models.CategoryRule
}

// NewStore creates a rule store seeded with the given rules.
func NewStore(rules []models.CategoryRule) *Store {
	return &Store{rules: models.CloneRules(rules)}
}

// Snapshot returns a deep copy of the current rule list.
func (s *Store) Snapshot() []models.CategoryRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneRules(s.rules)
}

// Replace swaps in a new rule list wholesale.
func (s *Store) Replace(rules []models.CategoryRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = models.CloneRules(rules)
}

// Len returns the number of stored rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// LoadRules reads a rule list from a JSON file. A missing file is not an
// error: callers start from DefaultRules and save on first learn.
func LoadRules(path string) ([]models.CategoryRule, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rules []models.CategoryRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decoding rules file: %w", err)
	}
	return rules, nil
}

// SaveRules writes a rule list to a JSON file via a temp-file rename so a
// crash mid-write never truncates the previous rule set.
func SaveRules(path string, rules []models.CategoryRule) error {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return os.Rename(tmp, path)
}
