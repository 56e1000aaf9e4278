package gemini

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"pdf-rag/internal/domain"
)

const DefaultModel = "gemini-2.0-flash"

// Config configures the Gemini generator. BaseURL overrides the API endpoint.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Generator sends prompts to the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
	logger arbor.ILogger
}

// New creates a Gemini generator. A missing API key is a configuration error.
func New(ctx context.Context, cfg Config, logger arbor.ILogger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, domain.Errorf(domain.ErrConfiguration, "gemini API key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, domain.Wrap(domain.ErrConfiguration, err, "create gemini client")
	}
	logger.Debug().Str("model", cfg.Model).Msg("Gemini generator initialized")
	return &Generator{client: client, model: cfg.Model, logger: logger}, nil
}

func (g *Generator) Name() string { return "gemini" }

// Generate sends prompt as a single user turn and returns the response text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
