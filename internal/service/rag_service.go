package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/generator"
	"pdf-rag/internal/loader"
	"pdf-rag/internal/queue"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 2

// Enqueuer accepts ingestion messages.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg queue.Message) (string, error)
	Len(ctx context.Context) (int, error)
}

// Deps are the collaborators of RAGServiceImpl.
type Deps struct {
	Jobs     domain.JobStore
	Queue    Enqueuer
	Embedder domain.Embedder
	Store    domain.VectorStore
	Answerer *generator.Answerer
	TopK     int
	Logger   arbor.ILogger
}

// RAGServiceImpl submits documents for ingestion and answers questions against the index.
type RAGServiceImpl struct {
	jobs     domain.JobStore
	queue    Enqueuer
	embedder domain.Embedder
	store    domain.VectorStore
	answerer *generator.Answerer
	topK     int
	logger   arbor.ILogger
}

var _ domain.RAGService = (*RAGServiceImpl)(nil)

// NewRAGService creates the service.
func NewRAGService(d Deps) *RAGServiceImpl {
	if d.TopK <= 0 {
		d.TopK = DefaultTopK
	}
	if d.Logger == nil {
		d.Logger = arbor.NewLogger()
	}
	if d.Answerer == nil {
		d.Answerer = generator.NewAnswerer(nil, 0, d.Logger)
	}
	return &RAGServiceImpl{
		jobs:     d.Jobs,
		queue:    d.Queue,
		embedder: d.Embedder,
		store:    d.Store,
		answerer: d.Answerer,
		topK:     d.TopK,
		logger:   d.Logger,
	}
}

// SubmitDocument records a queued job for an uploaded file and enqueues it.
// filename defaults to the base name of path.
func (s *RAGServiceImpl) SubmitDocument(ctx context.Context, filename, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", domain.Errorf(domain.ErrValidation, "no file uploaded")
	}
	if filename == "" {
		filename = filepath.Base(path)
	}
	if !loader.Supported(filename) {
		return "", domain.Errorf(domain.ErrValidation, "unsupported file type %q", filepath.Ext(filename))
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", domain.Wrap(domain.ErrValidation, err, "file "+path)
	}
	if info.IsDir() {
		return "", domain.Errorf(domain.ErrValidation, "%s is a directory", path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	job := &domain.Job{
		ID:    uuid.NewString(),
		State: domain.JobQueued,
		Payload: domain.JobPayload{
			Filename:    filename,
			Destination: filepath.Dir(path),
			Path:        path,
		},
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return "", err
	}
	if _, err := s.queue.Enqueue(ctx, queue.Message{JobID: job.ID, Name: queue.JobFileRead, Payload: job.Payload}); err != nil {
		job.State = domain.JobFailed
		job.Error = err.Error()
		if serr := s.jobs.SaveJob(context.WithoutCancel(ctx), job); serr != nil {
			s.logger.Warn().Err(serr).Str("job_id", job.ID).Msg("Failed to record enqueue failure")
		}
		return "", err
	}
	s.logger.Info().
		Str("job_id", job.ID).
		Str("filename", filename).
		Msg("Document queued for ingestion")
	return job.ID, nil
}

// AnswerQuery retrieves the closest chunks for query and answers from them.
func (s *RAGServiceImpl) AnswerQuery(ctx context.Context, query string) (*domain.AnswerResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "query is required")
	}
	start := time.Now()
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := s.store.Search(ctx, vec, s.topK)
	if err != nil {
		if !errors.Is(err, domain.ErrStore) {
			err = domain.Wrap(domain.ErrStore, err, "search")
		}
		return nil, err
	}
	s.logger.Debug().
		Int("results", len(results)).
		Str("context", generator.ContextText(results)).
		Msg("Retrieved context")

	answer, source := s.answerer.Answer(ctx, query, results)
	s.logger.Info().
		Str("generator", source).
		Int("results", len(results)).
		Str("duration", time.Since(start).String()).
		Msg("Query answered")
	return &domain.AnswerResult{
		Query:   query,
		Answer:  answer,
		Context: generator.Snippets(results),
		Source:  source,
	}, nil
}

// Job returns the stored state of one ingestion job.
func (s *RAGServiceImpl) Job(ctx context.Context, id string) (*domain.Job, error) {
	return s.jobs.GetJob(ctx, id)
}

// Status summarises the queue, job states and index size.
type Status struct {
	QueueDepth int                     `json:"queue_depth"`
	Jobs       map[domain.JobState]int `json:"jobs"`
	Records    int                     `json:"records"`
	Embedder   string                  `json:"embedder"`
}

// Status reports pipeline health.
func (s *RAGServiceImpl) Status(ctx context.Context) (*Status, error) {
	depth, err := s.queue.Len(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.jobs.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{QueueDepth: depth, Jobs: counts, Records: records, Embedder: s.embedder.Name()}, nil
}
