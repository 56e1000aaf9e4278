package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/config"
	"pdf-rag/internal/domain"
	"pdf-rag/internal/generator/claude"
	"pdf-rag/internal/generator/gemini"
)

func TestNewRemote(t *testing.T) {
	ctx := context.Background()
	logger := arbor.NewLogger()
	cfg := config.Default().Generator
	cfg.Gemini.APIKeyEnv = "TEST_GEMINI_KEY"
	cfg.Claude.APIKeyEnv = "TEST_CLAUDE_KEY"

	t.Setenv("TEST_GEMINI_KEY", "")
	g, err := NewRemote(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, g, "missing key means local only")

	t.Setenv("TEST_GEMINI_KEY", "k")
	g, err = NewRemote(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Generator{}, g)

	cfg.Type = "claude"
	t.Setenv("TEST_CLAUDE_KEY", "k")
	g, err = NewRemote(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &claude.Generator{}, g)

	cfg.Type = "none"
	g, err = NewRemote(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, g)

	cfg.Type = "gpt"
	_, err = NewRemote(ctx, cfg, logger)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
