package generator

import (
	"context"
	"os"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/config"
	"pdf-rag/internal/domain"
	"pdf-rag/internal/generator/claude"
	"pdf-rag/internal/generator/gemini"
)

// NewRemote builds the configured remote generator. It returns nil, without error,
// when remote generation is disabled or its API key is missing, so answers use the
// local fallback.
func NewRemote(ctx context.Context, cfg config.GeneratorConfig, logger arbor.ILogger) (domain.Generator, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "gemini":
		key := os.Getenv(cfg.Gemini.APIKeyEnv)
		if key == "" {
			logger.Warn().Str("env", cfg.Gemini.APIKeyEnv).Msg("Gemini API key not set, answers use local fallback")
			return nil, nil
		}
		g, err := gemini.New(ctx, gemini.Config{APIKey: key, Model: cfg.Gemini.Model}, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "claude":
		key := os.Getenv(cfg.Claude.APIKeyEnv)
		if key == "" {
			logger.Warn().Str("env", cfg.Claude.APIKeyEnv).Msg("Anthropic API key not set, answers use local fallback")
			return nil, nil
		}
		c, err := claude.New(claude.Config{APIKey: key, Model: cfg.Claude.Model, MaxTokens: cfg.Claude.MaxTokens}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, domain.Errorf(domain.ErrConfiguration, "unknown generator type %q", cfg.Type)
	}
}
