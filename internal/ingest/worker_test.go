package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/queue"
	badgerstore "pdf-rag/internal/storage/badger"
)

type countingProcessor struct {
	mu    sync.Mutex
	seen  []string
	inner Processor
	jobs  domain.JobStore
}

func (c *countingProcessor) Process(ctx context.Context, job *domain.Job) error {
	c.mu.Lock()
	c.seen = append(c.seen, job.ID)
	c.mu.Unlock()
	if c.inner != nil {
		return c.inner.Process(ctx, job)
	}
	job.State = domain.JobCompleted
	if c.jobs != nil {
		return c.jobs.SaveJob(ctx, job)
	}
	return nil
}

// flakyJobs fails every save after the first failAfter.
type flakyJobs struct {
	domain.JobStore
	mu        sync.Mutex
	saves     int
	failAfter int
}

func (f *flakyJobs) SaveJob(ctx context.Context, job *domain.Job) error {
	f.mu.Lock()
	f.saves++
	n := f.saves
	f.mu.Unlock()
	if n > f.failAfter {
		return domain.Errorf(domain.ErrStore, "disk full")
	}
	return f.JobStore.SaveJob(ctx, job)
}

func (c *countingProcessor) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.seen...)
}

func newTestQueue(t *testing.T) (*queue.BadgerQueue, *badgerstore.JobStore) {
	t.Helper()
	db, err := badgerstore.Open("", arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	q, err := queue.NewBadgerQueue(db.Badger(), "file-upload-queue", time.Minute, 3, arbor.NewLogger())
	require.NoError(t, err)
	return q, badgerstore.NewJobStore(db, arbor.NewLogger())
}

func enqueue(t *testing.T, q *queue.BadgerQueue, jobID, path string) {
	t.Helper()
	_, err := q.Enqueue(context.Background(), queue.Message{
		JobID:   jobID,
		Name:    queue.JobFileRead,
		Payload: domain.JobPayload{Filename: jobID + ".txt", Destination: "uploads", Path: path},
	})
	require.NoError(t, err)
}

func TestWorkerDrainProcessesAllJobs(t *testing.T) {
	ctx := context.Background()
	q, jobs := newTestQueue(t)
	f := newFixture(t, nil)
	p := NewPipeline(loaderFor(f), chunkerFor(f), f.pipeline.embedder, f.store, jobs, arbor.NewLogger())

	for _, id := range []string{"a", "b", "c"} {
		path := writeFile(t, id+".txt", sampleText)
		require.NoError(t, jobs.SaveJob(ctx, newJob(id, path)))
		enqueue(t, q, id, path)
	}

	w := NewWorker(q, jobs, p, WorkerConfig{Concurrency: 2}, arbor.NewLogger())
	require.NoError(t, w.Drain(ctx))

	for _, id := range []string{"a", "b", "c"} {
		job, err := jobs.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobCompleted, job.State, id)
		assert.Equal(t, 1, job.Attempts, id)
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerAcksFailedJobs(t *testing.T) {
	ctx := context.Background()
	q, jobs := newTestQueue(t)
	f := newFixture(t, nil)
	p := NewPipeline(loaderFor(f), chunkerFor(f), f.pipeline.embedder, f.store, jobs, arbor.NewLogger())

	path := writeFile(t, "bad.pdf", "garbage")
	require.NoError(t, jobs.SaveJob(ctx, newJob("bad", path)))
	enqueue(t, q, "bad", path)

	w := NewWorker(q, jobs, p, WorkerConfig{}, arbor.NewLogger())
	require.NoError(t, w.Drain(ctx))

	job, err := jobs.GetJob(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.State)
	assert.Contains(t, job.Error, "load")
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "failed jobs are not retried")
}

func TestWorkerSkipsFinishedJobs(t *testing.T) {
	ctx := context.Background()
	q, jobs := newTestQueue(t)
	done := newJob("done", "/tmp/done.txt")
	done.State = domain.JobCompleted
	require.NoError(t, jobs.SaveJob(ctx, done))
	enqueue(t, q, "done", done.Payload.Path)

	proc := &countingProcessor{}
	require.NoError(t, NewWorker(q, jobs, proc, WorkerConfig{}, nil).Drain(ctx))
	assert.Empty(t, proc.ids())
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerCreatesMissingJobRecord(t *testing.T) {
	ctx := context.Background()
	q, jobs := newTestQueue(t)
	enqueue(t, q, "orphan", "/tmp/orphan.txt")

	proc := &countingProcessor{jobs: jobs}
	require.NoError(t, NewWorker(q, jobs, proc, WorkerConfig{}, nil).Drain(ctx))
	assert.Equal(t, []string{"orphan"}, proc.ids())
	job, err := jobs.GetJob(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.State)
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerKeepsMessageWhenStateNotSaved(t *testing.T) {
	ctx := context.Background()
	q, store := newTestQueue(t)
	f := newFixture(t, nil)

	path := writeFile(t, "doc.txt", sampleText)
	require.NoError(t, store.SaveJob(ctx, newJob("doc", path)))
	enqueue(t, q, "doc", path)

	// the loading transition is saved, every later save fails
	jobs := &flakyJobs{JobStore: store, failAfter: 1}
	p := NewPipeline(loaderFor(f), chunkerFor(f), f.pipeline.embedder, f.store, jobs, arbor.NewLogger())
	require.NoError(t, NewWorker(q, jobs, p, WorkerConfig{}, arbor.NewLogger()).Drain(ctx))

	job, err := store.GetJob(ctx, "doc")
	require.NoError(t, err)
	assert.False(t, job.State.Terminal())
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "message stays queued for redelivery")
}

func TestWorkerDiscardsUnknownJobs(t *testing.T) {
	ctx := context.Background()
	q, jobs := newTestQueue(t)
	_, err := q.Enqueue(ctx, queue.Message{JobID: "x", Name: "resize-image"})
	require.NoError(t, err)

	proc := &countingProcessor{}
	require.NoError(t, NewWorker(q, jobs, proc, WorkerConfig{}, nil).Drain(ctx))
	assert.Empty(t, proc.ids())
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	q, jobs := newTestQueue(t)
	proc := &countingProcessor{}
	w := NewWorker(q, jobs, proc, WorkerConfig{Concurrency: 2, PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	enqueue(t, q, "late", "/tmp/late.txt")
	assert.Eventually(t, func() bool { return len(proc.ids()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func loaderFor(f fixture) domain.Loader   { return f.pipeline.loader }
func chunkerFor(f fixture) domain.Chunker { return f.pipeline.chunker }
