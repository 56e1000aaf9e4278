package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/queue"
)

// Receiver hands out queued ingestion messages.
type Receiver interface {
	Receive(ctx context.Context) (*queue.Delivery, error)
}

// Processor runs a single job to completion.
type Processor interface {
	Process(ctx context.Context, job *domain.Job) error
}

// WorkerConfig tunes the worker pool.
type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	Visibility   time.Duration
}

// Worker consumes the upload queue with a fixed pool of goroutines.
type Worker struct {
	queue     Receiver
	jobs      domain.JobStore
	processor Processor
	cfg       WorkerConfig
	logger    arbor.ILogger
}

// NewWorker creates a worker pool over q.
func NewWorker(q Receiver, jobs domain.JobStore, processor Processor, cfg WorkerConfig, logger arbor.ILogger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Visibility <= 0 {
		cfg.Visibility = 5 * time.Minute
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Worker{queue: q, jobs: jobs, processor: processor, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled. A job already in flight finishes first.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("concurrency", w.cfg.Concurrency).Msg("Worker pool started")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		id := i + 1
		g.Go(func() error {
			ticker := time.NewTicker(w.cfg.PollInterval)
			defer ticker.Stop()
			for {
				handled, err := w.next(ctx, id)
				if err != nil {
					w.logger.Warn().Err(err).Int("worker_id", id).Msg("Queue receive failed")
				}
				if handled {
					continue
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	err := g.Wait()
	w.logger.Info().Msg("Worker pool stopped")
	return err
}

// Drain processes messages until none are visible, then returns.
func (w *Worker) Drain(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		id := i + 1
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				handled, err := w.next(ctx, id)
				if err != nil {
					return err
				}
				if !handled {
					return nil
				}
			}
		})
	}
	return g.Wait()
}

// next handles at most one message. handled is false when the queue had nothing ready.
func (w *Worker) next(ctx context.Context, workerID int) (handled bool, err error) {
	if ctx.Err() != nil {
		return false, nil
	}
	d, err := w.queue.Receive(ctx)
	if errors.Is(err, queue.ErrNoMessage) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	w.handle(context.WithoutCancel(ctx), workerID, d)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, workerID int, d *queue.Delivery) {
	log := w.logger.WithCorrelationId(d.Message.JobID)
	if d.Message.Name != queue.JobFileRead {
		log.Warn().Str("job", d.Message.Name).Str("message_id", d.ID).Msg("Unknown job type; discarding")
		w.ack(log, d)
		return
	}

	job, err := w.jobs.GetJob(ctx, d.Message.JobID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		job = &domain.Job{ID: d.Message.JobID, Payload: d.Message.Payload, State: domain.JobQueued}
	case err != nil:
		// leave the message for redelivery
		log.Error().Err(err).Str("job_id", d.Message.JobID).Msg("Load job record failed")
		return
	}
	if job.State.Terminal() {
		log.Info().Str("job_id", job.ID).Str("state", string(job.State)).Msg("Job already finished; skipping")
		w.ack(log, d)
		return
	}
	job.Attempts++

	stop := w.heartbeat(ctx, log, d)
	err = w.processor.Process(ctx, job)
	stop()
	if err != nil {
		log.Warn().Err(err).Int("worker_id", workerID).Str("job_id", job.ID).Msg("Job did not complete")
	}
	if !w.finished(ctx, log, job.ID) {
		// the record was not saved as finished; redelivery runs the job again
		log.Warn().Str("job_id", job.ID).Str("message_id", d.ID).Msg("Job state not persisted; leaving message for redelivery")
		return
	}
	w.ack(log, d)
}

// finished reports whether the stored record of job id is in a terminal state.
func (w *Worker) finished(ctx context.Context, log arbor.ILogger, id string) bool {
	job, err := w.jobs.GetJob(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("Load job record failed")
		return false
	}
	return job.State.Terminal()
}

// heartbeat keeps the delivery invisible while a long job runs.
func (w *Worker) heartbeat(ctx context.Context, log arbor.ILogger, d *queue.Delivery) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(w.cfg.Visibility / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := d.Extend(ctx, w.cfg.Visibility); err != nil {
					log.Warn().Err(err).Str("message_id", d.ID).Msg("Extend visibility failed")
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func (w *Worker) ack(log arbor.ILogger, d *queue.Delivery) {
	if err := d.Ack(); err != nil {
		log.Error().Err(err).Str("message_id", d.ID).Msg("Ack failed")
	}
}
