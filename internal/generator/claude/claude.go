package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 1024
)

// Config configures the Claude generator. BaseURL overrides the API endpoint.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// Generator sends prompts to the Anthropic Messages API.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int
	logger    arbor.ILogger
}

// New creates a Claude generator. A missing API key is a configuration error.
// The client does not retry; the answer path falls back locally instead.
func New(cfg Config, logger arbor.ILogger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, domain.Errorf(domain.ErrConfiguration, "anthropic API key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	logger.Debug().Str("model", cfg.Model).Int("max_tokens", cfg.MaxTokens).Msg("Claude generator initialized")
	return &Generator{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

func (g *Generator) Name() string { return "claude" }

// Generate sends prompt as a single user message and joins the text blocks of the reply.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
