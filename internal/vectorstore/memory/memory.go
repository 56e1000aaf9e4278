package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/vectorstore/rank"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Records are keyed by ID; upserting an existing ID replaces it in place.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	records   map[string]domain.Record
}

func NewStorage() *Storage { return &Storage{records: make(map[string]domain.Record)} }

// EnsureCollection fixes the vector dimension. It fails if records of another dimension exist.
func (s *Storage) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.Errorf(domain.ErrValidation, "invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension && len(s.records) > 0 {
		return domain.Errorf(domain.ErrStore, "collection has dimension %d, want %d", s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if s.dimension == 0 {
			s.dimension = len(r.Vector)
		}
		if len(r.Vector) != s.dimension {
			return domain.Errorf(domain.ErrValidation, "vector dimension %d, want %d", len(r.Vector), s.dimension)
		}
	}
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		r.Vector = append([]float64(nil), r.Vector...)
		s.records[r.ID] = r
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, domain.Errorf(domain.ErrValidation, "query dimension %d, want %d", len(vector), s.dimension)
	}
	results := make([]domain.SearchResult, 0, len(s.order))
	for _, id := range s.order {
		r := s.records[id]
		results = append(results, domain.SearchResult{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Score:    rank.Cosine(r.Vector, vector),
		})
	}
	return rank.TopK(results, topK), nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.records = make(map[string]domain.Record)
	return nil
}
