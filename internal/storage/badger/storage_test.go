package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/embedding/tfidf"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("", arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestJobStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore(openTestDB(t), nil)

	job := &domain.Job{
		ID:      "job-1",
		Payload: domain.JobPayload{Filename: "a.pdf", Destination: "uploads", Path: "uploads/a.pdf"},
		State:   domain.JobQueued,
	}
	require.NoError(t, store.SaveJob(ctx, job))
	assert.False(t, job.CreatedAt.IsZero())

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, got.State)
	assert.Equal(t, job.Payload, got.Payload)

	now := time.Now()
	got.State = domain.JobCompleted
	got.Chunks = 4
	got.CompletedAt = &now
	require.NoError(t, store.SaveJob(ctx, got))

	again, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, again.State)
	assert.Equal(t, 4, again.Chunks)
	require.NotNil(t, again.CompletedAt)
}

func TestJobStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore(openTestDB(t), nil)

	_, err := store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.SaveJob(ctx, &domain.Job{}), domain.ErrValidation)
}

func TestJobStoreCountAndList(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore(openTestDB(t), nil)
	states := []domain.JobState{domain.JobQueued, domain.JobCompleted, domain.JobCompleted, domain.JobFailed}
	for i, s := range states {
		require.NoError(t, store.SaveJob(ctx, &domain.Job{
			ID:        string(rune('a' + i)),
			State:     s,
			CreatedAt: time.Unix(int64(1000+i), 0),
		}))
	}

	counts, err := store.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.JobState]int{
		domain.JobQueued:    1,
		domain.JobCompleted: 2,
		domain.JobFailed:    1,
	}, counts)

	completed, err := store.ListJobs(ctx, domain.JobCompleted, 0)
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, "c", completed[0].ID, "newest first")

	latest, err := store.ListJobs(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "d", latest[0].ID)

	require.NoError(t, store.DeleteAll(ctx))
	counts, err = store.CountByState(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestCorpusStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCorpusStore(openTestDB(t), nil)

	snap, err := store.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := &tfidf.Snapshot{
		Documents:  []string{"cats purr", "dogs bark"},
		Vocabulary: map[string]int{"cats": 0, "purr": 1, "dogs": 2, "bark": 3},
	}
	require.NoError(t, store.SaveCorpus(ctx, want))
	got, err := store.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	got, err = store.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, store.Clear(ctx))
}

func TestCorpusSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "badger")

	db, err := Open(path, nil)
	require.NoError(t, err)
	e := tfidf.NewEmbedder(nil, nil).WithStateStore(NewCorpusStore(db, nil))
	_, err = e.EmbedDocuments(ctx, []string{"the cat is an animal", "revenue grew"})
	require.NoError(t, err)
	want, err := e.EmbedQuery(ctx, "cat")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()
	state, err := tfidf.LoadState(ctx, NewCorpusStore(db, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, state.Len())
	got, err := tfidf.NewEmbedder(state, nil).EmbedQuery(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
