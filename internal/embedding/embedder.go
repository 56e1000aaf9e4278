package embedding

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/config"
	"pdf-rag/internal/domain"
	"pdf-rag/internal/embedding/openai"
	"pdf-rag/internal/embedding/tfidf"
)

// New builds the embedder selected by cfg. For tfidf, a non-nil store restores the
// corpus on start and receives a snapshot whenever the corpus grows.
func New(ctx context.Context, cfg config.EmbedderConfig, store tfidf.StateStore, logger arbor.ILogger) (domain.Embedder, error) {
	switch cfg.Type {
	case "", "tfidf":
		if !cfg.TFIDF.Persist || store == nil {
			return tfidf.NewEmbedder(nil, logger), nil
		}
		state, err := tfidf.LoadState(ctx, store)
		if err != nil {
			return nil, err
		}
		logger.Info().
			Int("corpus_size", state.Len()).
			Int("vocabulary_size", state.VocabularySize()).
			Msg("Restored embedding corpus")
		return tfidf.NewEmbedder(state, logger).WithStateStore(store), nil
	case "openai":
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, domain.Errorf(domain.ErrConfiguration, "unknown embedder type %q", cfg.Type)
	}
}
