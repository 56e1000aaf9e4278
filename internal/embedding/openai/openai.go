package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// Unlike the local engine it keeps no corpus: documents and queries embed the same way.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
	logger     arbor.ILogger

	mu        sync.Mutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config, logger arbor.ILogger) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.Errorf(domain.ErrConfiguration, "missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
		logger:     logger,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality seen on the first response, 0 before that.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// EmbedDocuments embeds each text in order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, err := c.embed(ctx, text)
		if err != nil {
			return nil, domain.Wrap(domain.ErrEmbedding, err, fmt.Sprintf("embed text %d", i))
		}
		out[i] = v
	}
	return out, nil
}

// EmbedQuery returns an embedding vector for the given text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	v, err := c.embed(ctx, text)
	if err != nil {
		return nil, domain.Wrap(domain.ErrEmbedding, err, "embed query")
	}
	return v, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	type reqBody struct {
		Input  string `json:"input,omitempty"`
		Prompt string `json:"prompt,omitempty"`
		Model  string `json:"model"`
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		data, err := json.Marshal(reqBody{Input: text, Prompt: text, Model: c.model})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				if werr := c.wait(ctx, attempt, retryDelay(attempt), err); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			// Respect Retry-After if provided
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				delay = time.Duration(secs) * time.Second
			}
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				if werr := c.wait(ctx, attempt, delay, errors.New(resp.Status)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			if attempt < c.maxRetries {
				if werr := c.wait(ctx, attempt, retryDelay(attempt), err); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}
		if v := decodeEmbedding(payload); len(v) > 0 {
			c.mu.Lock()
			if c.dimension == 0 {
				c.dimension = len(v)
			}
			c.mu.Unlock()
			return v, nil
		}
		if attempt < c.maxRetries {
			if werr := c.wait(ctx, attempt, retryDelay(attempt), errors.New("no embedding in response")); werr != nil {
				return nil, werr
			}
			continue
		}
		return nil, errors.New("no embedding returned")
	}
	return nil, errors.New("no embedding returned")
}

// decodeEmbedding accepts the OpenAI shape {"data":[{"embedding":[...]}]} and the
// Ollama shape {"embedding":[...]}.
func decodeEmbedding(payload []byte) []float64 {
	var openaiOut struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil {
		if len(openaiOut.Data) > 0 && len(openaiOut.Data[0].Embedding) > 0 {
			return openaiOut.Data[0].Embedding
		}
	}
	var ollamaOut struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil {
		return ollamaOut.Embedding
	}
	return nil
}

func (c *Client) wait(ctx context.Context, attempt int, d time.Duration, cause error) error {
	c.logger.Warn().
		Int("attempt", attempt+1).
		Str("backoff", d.String()).
		Err(cause).
		Msg("Retrying embeddings request")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
