package vectorstore

import (
	"io"
	"time"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/config"
	"pdf-rag/internal/domain"
	"pdf-rag/internal/vectorstore/bolt"
	"pdf-rag/internal/vectorstore/memory"
	"pdf-rag/internal/vectorstore/qdrant"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the vector store selected by cfg. The returned closer releases any
// file handle the store holds.
func New(cfg config.VectorStoreConfig, logger arbor.ILogger) (domain.VectorStore, io.Closer, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nopCloser{}, nil
	case "", "bolt":
		s, err := bolt.Open(cfg.Bolt.Path, cfg.Collection, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}, logger), nopCloser{}, nil
	default:
		return nil, nil, domain.Errorf(domain.ErrConfiguration, "unknown vector store type %q", cfg.Type)
	}
}
