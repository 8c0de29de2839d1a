// Package search maintains a full-text index over normalized transactions
// and receipts so the review UI can find records by merchant, narration
// fragment, reference, or category.
package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/rganapathy/upi-reconciler/internal/models"
	"github.com/rganapathy/upi-reconciler/pkg/dateparse"
)

// Document is the indexed projection of a transaction or receipt.
type Document struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"` // "transaction" or "receipt"
	Merchant    string  `json:"merchant"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	UTR         string  `json:"utr"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
}

// Hit is one search result with its relevance score.
type Hit struct {
	ID    string
	Kind  string
	Score float64
}

// Index wraps a bleve index over reconciliation records.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewIndex creates a search index. An empty path builds an in-memory
// index; otherwise the index is created or reopened on disk.
func NewIndex(path string) (*Index, error) {
	indexMapping := buildIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("creating index directory: %w", mkdirErr)
		}
		idx, err = bleve.New(path, indexMapping)
	} else {
		idx, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = simple.Name

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	numericField := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("merchant", textField)
	docMapping.AddFieldMappingsAt("description", textField)
	docMapping.AddFieldMappingsAt("category", keywordField)
	docMapping.AddFieldMappingsAt("utr", keywordField)
	docMapping.AddFieldMappingsAt("kind", keywordField)
	docMapping.AddFieldMappingsAt("date", keywordField)
	docMapping.AddFieldMappingsAt("amount", numericField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexRecords indexes transactions and receipts in one batch.
func (ix *Index) IndexRecords(transactions []models.BankTransaction, receipts []models.Receipt) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()

	for _, tx := range transactions {
		amount, _ := tx.Amount.Float64()
		doc := Document{
			ID:          tx.ID.String(),
			Kind:        "transaction",
			Description: tx.Description,
			Category:    string(tx.Category),
			UTR:         tx.UTR,
			Date:        dateparse.ISO(tx.Date),
			Amount:      amount,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("indexing transaction %s: %w", doc.ID, err)
		}
	}

	for _, r := range receipts {
		amount, _ := r.Amount.Float64()
		doc := Document{
			ID:          r.ID.String(),
			Kind:        "receipt",
			Merchant:    r.Merchant,
			Description: r.Extracted.RawText,
			Category:    string(r.Category),
			UTR:         r.UTR,
			Date:        dateparse.ISO(r.Date),
			Amount:      amount,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("indexing receipt %s: %w", doc.ID, err)
		}
	}

	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("committing index batch: %w", err)
	}
	return nil
}

// Search runs a query-string query and returns up to limit hits by
// descending relevance.
func (ix *Index) Search(query string, limit int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if limit <= 0 {
		limit = 25
	}

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	req.Fields = []string{"kind"}

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if kind, ok := h.Fields["kind"].(string); ok {
			hit.Kind = kind
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}
