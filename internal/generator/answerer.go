package generator

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

// SourceLocal marks answers produced without a language model.
const SourceLocal = "local"

// Answerer produces answers with a remote generator when one is configured and
// falls back to LocalAnswer on any remote failure. Remote errors never reach callers.
type Answerer struct {
	remote  domain.Generator
	timeout time.Duration
	logger  arbor.ILogger
}

// NewAnswerer creates an answerer. remote may be nil for local-only answers.
func NewAnswerer(remote domain.Generator, timeout time.Duration, logger arbor.ILogger) *Answerer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Answerer{remote: remote, timeout: timeout, logger: logger}
}

// Answer returns the answer text and the name of the generator that produced it.
func (a *Answerer) Answer(ctx context.Context, query string, results []domain.SearchResult) (string, string) {
	if a.remote != nil {
		start := time.Now()
		text, err := a.generate(ctx, BuildPrompt(query, results))
		if err == nil {
			a.logger.Debug().
				Str("generator", a.remote.Name()).
				Int("answer_length", len(text)).
				Str("duration", time.Since(start).String()).
				Msg("Remote answer generated")
			return text, a.remote.Name()
		}
		a.logger.Warn().
			Err(err).
			Str("generator", a.remote.Name()).
			Str("duration", time.Since(start).String()).
			Msg("Remote generation failed, using local answer")
	}
	return LocalAnswer(query, results), SourceLocal
}

func (a *Answerer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	text, err := a.remote.Generate(ctx, prompt)
	if err != nil {
		return "", domain.Wrap(domain.ErrGeneration, err, a.remote.Name())
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.Errorf(domain.ErrGeneration, "%s returned no text", a.remote.Name())
	}
	return text, nil
}
