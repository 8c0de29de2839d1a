// Package reconcile orchestrates one pass of the pipeline: statement
// normalization, receipt extraction, matching, and categorization. It also
// owns the review transitions, folding approved categorizations back into
// the rule store as a single serialized writer.
package reconcile

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rganapathy/upi-reconciler/internal/domain/categorization"
	"github.com/rganapathy/upi-reconciler/internal/domain/matching"
	"github.com/rganapathy/upi-reconciler/internal/domain/receipt"
	"github.com/rganapathy/upi-reconciler/internal/domain/statement"
	"github.com/rganapathy/upi-reconciler/internal/models"
)

// OCRInput is one receipt as delivered by the OCR collaborator.
type OCRInput struct {
	Text       string
	Confidence float64
}

// Result is the output of one reconciliation pass. The collections are
// fresh values owned by the caller; the service never mutates them behind
// the caller's back.
type Result struct {
	Transactions []models.BankTransaction
	Receipts     []models.Receipt
	Matches      []models.TransactionMatch
}

// Service wires the pipeline stages together.
type Service struct {
	normalizer *statement.Normalizer
	extractor  *receipt.Extractor
	matcher    *matching.Engine
	engine     *categorization.Engine
	store      *categorization.Store
	logger     *slog.Logger

	// approveMu serializes review operations: the enhance-existing-rule
	// path reads the full rule list before replacing it.
	approveMu sync.Mutex

	// reviewed tracks transactions consumed by a terminal match so
	// re-running a pass never regresses a reviewed outcome.
	reviewed   map[uuid.UUID]bool
	reviewedMu sync.Mutex
}

// NewService creates a reconciliation service. Empty rules fall back to
// the built-in system rule set; a nil logger discards logs.
func NewService(rules []models.CategoryRule, weights matching.Weights, minScore int, logger *slog.Logger) *Service {
	if len(rules) == 0 {
		rules = categorization.DefaultRules()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		normalizer: statement.NewNormalizer(),
		extractor:  receipt.NewExtractor(),
		matcher:    matching.NewEngine(weights, minScore),
		engine:     categorization.NewEngine(rules),
		store:      categorization.NewStore(rules),
		logger:     logger,
		reviewed:   make(map[uuid.UUID]bool),
	}
}

// Run executes a full pass: normalize the statement, extract every
// receipt, pair them, and suggest a category per match.
func (s *Service) Run(table statement.Table, ocr []OCRInput) (*Result, error) {
	transactions, err := s.normalizer.Normalize(table)
	if err != nil {
		return nil, err
	}

	receipts := make([]models.Receipt, 0, len(ocr))
	for _, in := range ocr {
		receipts = append(receipts, s.extractor.Extract(in.Text, in.Confidence))
	}

	matches, err := s.match(transactions, receipts)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reconciliation pass complete",
		slog.Int("transactions", len(transactions)),
		slog.Int("receipts", len(receipts)),
		slog.Int("matches", len(matches)),
	)

	return &Result{
		Transactions: transactions,
		Receipts:     receipts,
		Matches:      matches,
	}, nil
}

// Rematch re-runs matching and categorization over existing collections,
// excluding transactions whose matches were already approved or rejected.
func (s *Service) Rematch(transactions []models.BankTransaction, receipts []models.Receipt) ([]models.TransactionMatch, error) {
	s.reviewedMu.Lock()
	eligible := make([]models.BankTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if s.reviewed[tx.ID] {
			continue
		}
		eligible = append(eligible, tx)
	}
	s.reviewedMu.Unlock()

	return s.match(eligible, receipts)
}

func (s *Service) match(transactions []models.BankTransaction, receipts []models.Receipt) ([]models.TransactionMatch, error) {
	matches := s.matcher.Match(transactions, receipts)

	for i := range matches {
		m := &matches[i]
		cls, err := s.engine.Classify(classificationText(m))
		if err != nil {
			return nil, err
		}
		if cls != nil {
			m.Category = cls.Category
			m.CategoryConfidence = cls.Confidence
		}
	}
	return matches, nil
}

// classificationText picks the categorization input: the receipt's
// merchant when one was extracted, else the bank narration.
func classificationText(m *models.TransactionMatch) string {
	if m.Receipt != nil && m.Receipt.Merchant != "" && m.Receipt.Merchant != receipt.DefaultMerchant {
		return m.Receipt.Merchant + " " + m.Transaction.Description
	}
	return m.Transaction.Description
}

// Approve finalizes a pending match. The category applied is the match's
// suggestion unless the reviewer overrides it, and the approval is learned
// into the rule store atomically before the updated rule set is rebuilt
// into the live engine.
func (s *Service) Approve(m models.TransactionMatch, override models.Category, opts categorization.TrainingOptions) (models.TransactionMatch, error) {
	s.approveMu.Lock()
	defer s.approveMu.Unlock()

	// An override contradicts the engine's suggestion. Record the
	// suggestion as the transaction's previous auto-assigned category so
	// learning can decay the rules that backed it.
	if override != "" {
		if m.Transaction.Category == "" && m.Category != override {
			m.Transaction.Category = m.Category
		}
		m.Category = override
	}

	// Learn from the engine's rules, not the store's: the engine carries
	// the usage counters updated by classifications since the last build.
	if m.Category != "" {
		rules := categorization.Learn(m.Transaction, m.Receipt, m.Category, s.engine.Rules(), opts)
		s.store.Replace(rules)
		s.engine.Build(rules)
	}

	approved, err := matching.Approve(m)
	if err != nil {
		return m, err
	}

	s.markReviewed(approved.Transaction.ID)
	s.logger.Info("match approved",
		slog.String("transaction", approved.Transaction.ID.String()),
		slog.String("category", string(approved.Category)),
		slog.Int("score", approved.Score),
	)
	return approved, nil
}

// Reject marks a pending match rejected and shelves its transaction so it
// is not re-proposed by later passes.
func (s *Service) Reject(m models.TransactionMatch) (models.TransactionMatch, error) {
	rejected, err := matching.Reject(m)
	if err != nil {
		return m, err
	}
	s.markReviewed(rejected.Transaction.ID)
	return rejected, nil
}

// Rules returns a snapshot of the current rule set for persistence. It is
// read from the engine rather than the store so the usage counters updated
// by classifications are included.
func (s *Service) Rules() []models.CategoryRule {
	return s.engine.Rules()
}

func (s *Service) markReviewed(id uuid.UUID) {
	s.reviewedMu.Lock()
	s.reviewed[id] = true
	s.reviewedMu.Unlock()
}
