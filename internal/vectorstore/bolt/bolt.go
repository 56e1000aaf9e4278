package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"go.etcd.io/bbolt"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/vectorstore/rank"
)

var bucketMeta = []byte("_meta")

type storedRecord struct {
	ID       string         `json:"id"`
	Vector   []float64      `json:"vector"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Storage is a file-backed vector store. Each collection is a bbolt bucket of
// JSON records keyed by ID; search is a brute-force cosine scan.
type Storage struct {
	db         *bbolt.DB
	collection []byte
	logger     arbor.ILogger
}

// Open opens (or creates) the bbolt file at path and uses collection as its bucket.
func Open(path, collection string, logger arbor.ILogger) (*Storage, error) {
	if collection == "" {
		return nil, domain.Errorf(domain.ErrConfiguration, "collection name is required")
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domain.Wrap(domain.ErrStore, err, "create vector store directory")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, domain.Wrap(domain.ErrStore, err, "open "+path)
	}
	s := &Storage{db: db, collection: []byte(collection), logger: logger}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(s.collection)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, domain.Wrap(domain.ErrStore, err, "create buckets")
	}
	return s, nil
}

// EnsureCollection records the collection's dimension, failing on a mismatch with
// a non-empty collection.
func (s *Storage) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.Errorf(domain.ErrValidation, "invalid dimension %d", dimension)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if cur := readDimension(meta, s.collection); cur != 0 && cur != dimension {
			if k, _ := tx.Bucket(s.collection).Cursor().First(); k != nil {
				return fmt.Errorf("collection %s has dimension %d, want %d", s.collection, cur, dimension)
			}
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(dimension))
		return meta.Put(s.collection, buf)
	})
	if err != nil {
		return domain.Wrap(domain.ErrStore, err, "ensure collection")
	}
	return nil
}

// Upsert writes all records in one transaction. Records without an ID get a random one.
func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		dim := readDimension(meta, s.collection)
		b := tx.Bucket(s.collection)
		for _, r := range records {
			if dim != 0 && len(r.Vector) != dim {
				return domain.Errorf(domain.ErrValidation, "vector dimension %d, want %d", len(r.Vector), dim)
			}
			if r.ID == "" {
				r.ID = uuid.New().String()
			}
			data, err := json.Marshal(storedRecord{ID: r.ID, Vector: r.Vector, Text: r.Text, Metadata: r.Metadata})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Wrap(domain.ErrStore, err, "upsert")
	}
	return nil
}

// Search scans the collection and returns the topK most similar records.
func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	var results []domain.SearchResult
	err := s.db.View(func(tx *bbolt.Tx) error {
		if dim := readDimension(tx.Bucket(bucketMeta), s.collection); dim != 0 && len(vector) != dim {
			return domain.Errorf(domain.ErrValidation, "query dimension %d, want %d", len(vector), dim)
		}
		return tx.Bucket(s.collection).ForEach(func(_, v []byte) error {
			var r storedRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			results = append(results, domain.SearchResult{
				ID:       r.ID,
				Text:     r.Text,
				Metadata: r.Metadata,
				Score:    rank.Cosine(r.Vector, vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, domain.Wrap(domain.ErrStore, err, "search")
	}
	return rank.TopK(results, topK), nil
}

func (s *Storage) Count(context.Context) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(s.collection).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear drops and recreates the collection bucket.
func (s *Storage) Clear(context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(s.collection); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(s.collection); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete(s.collection)
	})
	if err != nil {
		return domain.Wrap(domain.ErrStore, err, "clear")
	}
	s.logger.Info().Str("collection", string(s.collection)).Msg("Cleared vector collection")
	return nil
}

func (s *Storage) Close() error { return s.db.Close() }

func readDimension(meta *bbolt.Bucket, collection []byte) int {
	v := meta.Get(collection)
	if len(v) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(v))
}
