package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

// upsertBatchSize bounds how many records go to the vector store per call.
const upsertBatchSize = 64

// Pipeline runs one ingestion job through loading, chunking, embedding and upserting.
type Pipeline struct {
	loader       domain.Loader
	chunker      domain.Chunker
	embedder     domain.Embedder
	store        domain.VectorStore
	jobs         domain.JobStore
	summarizer   domain.Summarizer
	maxSentences int
	logger       arbor.ILogger
}

// Option configures optional pipeline behaviour.
type Option func(*Pipeline)

// WithSummarizer stores an extractive summary on completed jobs.
func WithSummarizer(s domain.Summarizer, maxSentences int) Option {
	return func(p *Pipeline) {
		p.summarizer = s
		p.maxSentences = maxSentences
	}
}

// NewPipeline wires the ingestion stages together.
func NewPipeline(loader domain.Loader, chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, jobs domain.JobStore, logger arbor.ILogger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	p := &Pipeline{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		jobs:     jobs,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process drives job to a terminal state. The returned error is the cause of a
// failed job, or an error persisting job state.
func (p *Pipeline) Process(ctx context.Context, job *domain.Job) error {
	start := time.Now()
	if err := p.transition(ctx, job, domain.JobLoading); err != nil {
		return err
	}
	doc, err := p.loader.Load(ctx, job.Payload.Filename, job.Payload.Path)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	if err := p.transition(ctx, job, domain.JobChunking); err != nil {
		return err
	}
	chunks, err := p.chunker.ChunkDocument(doc)
	if err != nil {
		return p.fail(ctx, job, err)
	}
	if len(chunks) == 0 {
		p.logger.Warn().
			Str("job_id", job.ID).
			Str("filename", job.Payload.Filename).
			Msg("Document has no extractable text; nothing to index")
		return p.complete(ctx, job, 0, "", start)
	}

	if err := p.transition(ctx, job, domain.JobEmbedding); err != nil {
		return err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return p.fail(ctx, job, domain.Wrap(domain.ErrEmbedding, err, "embed chunks"))
	}
	if len(vectors) != len(chunks) {
		return p.fail(ctx, job, domain.Errorf(domain.ErrEmbedding, "got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	if err := p.transition(ctx, job, domain.JobUpserting); err != nil {
		return err
	}
	if err := p.upsert(ctx, chunks, vectors); err != nil {
		return p.fail(ctx, job, err)
	}

	summary := ""
	if p.summarizer != nil {
		s, err := p.summarizer.Summarize(doc.Text(), p.maxSentences)
		if err != nil {
			p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Summary failed")
		} else {
			summary = s
		}
	}
	return p.complete(ctx, job, len(chunks), summary, start)
}

func (p *Pipeline) upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	dim := p.embedder.Dimension()
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if err := p.store.EnsureCollection(ctx, dim); err != nil {
		return asStoreError(err, "ensure collection")
	}
	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))
		batch := make([]domain.Record, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, domain.Record{
				ID:       chunks[i].ID,
				Vector:   vectors[i],
				Text:     chunks[i].Text,
				Metadata: chunks[i].Metadata,
			})
		}
		if err := p.store.Upsert(ctx, batch); err != nil {
			return asStoreError(err, "upsert records")
		}
	}
	return nil
}

func asStoreError(err error, msg string) error {
	if errors.Is(err, domain.ErrStore) {
		return err
	}
	return domain.Wrap(domain.ErrStore, err, msg)
}

func (p *Pipeline) transition(ctx context.Context, job *domain.Job, state domain.JobState) error {
	job.State = state
	if err := p.jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	p.logger.Debug().
		Str("job_id", job.ID).
		Str("state", string(state)).
		Msg("Job state changed")
	return nil
}

func (p *Pipeline) complete(ctx context.Context, job *domain.Job, chunks int, summary string, start time.Time) error {
	now := time.Now()
	job.Chunks = chunks
	job.Summary = summary
	job.Error = ""
	job.CompletedAt = &now
	if err := p.transition(ctx, job, domain.JobCompleted); err != nil {
		return err
	}
	p.logger.Info().
		Str("job_id", job.ID).
		Str("filename", job.Payload.Filename).
		Int("chunks", chunks).
		Str("duration", time.Since(start).String()).
		Msg("Job completed")
	return nil
}

func (p *Pipeline) fail(ctx context.Context, job *domain.Job, cause error) error {
	now := time.Now()
	job.Error = cause.Error()
	job.CompletedAt = &now
	// persist with a fresh context so a cancelled job still records its failure
	saveCtx := context.WithoutCancel(ctx)
	if err := p.transition(saveCtx, job, domain.JobFailed); err != nil {
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record job failure")
	}
	p.logger.Error().
		Err(cause).
		Str("job_id", job.ID).
		Str("filename", job.Payload.Filename).
		Msg("Job failed")
	return cause
}
