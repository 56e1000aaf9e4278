package badger

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/embedding/tfidf"
)

const corpusKey = "tfidf"

type corpusRecord struct {
	Name       string
	Documents  []string
	Vocabulary map[string]int
	SavedAt    time.Time
}

// CorpusStore persists the embedding corpus as a single badgerhold record.
// It implements tfidf.StateStore.
type CorpusStore struct {
	db     *DB
	logger arbor.ILogger
}

// NewCorpusStore creates a corpus store over db.
func NewCorpusStore(db *DB, logger arbor.ILogger) *CorpusStore {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &CorpusStore{db: db, logger: logger}
}

// LoadCorpus returns the saved snapshot, or nil when none exists.
func (s *CorpusStore) LoadCorpus(_ context.Context) (*tfidf.Snapshot, error) {
	var rec corpusRecord
	if err := s.db.Store().Get(corpusKey, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.Wrap(domain.ErrStore, err, "load corpus")
	}
	return &tfidf.Snapshot{Documents: rec.Documents, Vocabulary: rec.Vocabulary}, nil
}

// SaveCorpus replaces the stored snapshot.
func (s *CorpusStore) SaveCorpus(_ context.Context, snapshot *tfidf.Snapshot) error {
	rec := corpusRecord{
		Name:       corpusKey,
		Documents:  snapshot.Documents,
		Vocabulary: snapshot.Vocabulary,
		SavedAt:    time.Now(),
	}
	if err := s.db.Store().Upsert(corpusKey, rec); err != nil {
		return domain.Wrap(domain.ErrStore, err, "save corpus")
	}
	s.logger.Debug().Int("documents", len(rec.Documents)).Msg("Saved corpus snapshot")
	return nil
}

// Clear removes the stored snapshot.
func (s *CorpusStore) Clear(_ context.Context) error {
	err := s.db.Store().Delete(corpusKey, corpusRecord{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return domain.Wrap(domain.ErrStore, err, "clear corpus")
	}
	return nil
}
