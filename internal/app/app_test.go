package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/config"
	"pdf-rag/internal/domain"
	"pdf-rag/internal/generator"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Storage.BadgerPath = filepath.Join(dir, "badger")
	cfg.VectorStore.Bolt.Path = filepath.Join(dir, "vectors.db")
	cfg.Inbox.Dir = filepath.Join(dir, "uploads")
	cfg.Generator.Type = "none"
	return cfg
}

func TestAppIngestAnswerAndReset(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), arbor.NewLogger())
	require.NoError(t, err)
	defer a.Close()

	path := filepath.Join(t.TempDir(), "cat.txt")
	require.NoError(t, os.WriteFile(path, []byte("The cat is an animal. It purrs when content."), 0o644))

	id, err := a.Service.SubmitDocument(ctx, "", path)
	require.NoError(t, err)
	require.NoError(t, a.Worker.Drain(ctx))

	job, err := a.Service.Job(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.State)
	assert.NotEmpty(t, job.Summary)

	res, err := a.Service.AnswerQuery(ctx, "What is the cat?")
	require.NoError(t, err)
	assert.Equal(t, generator.SourceLocal, res.Source)
	assert.Contains(t, res.Answer, "The cat is an animal.")

	require.NoError(t, a.Reset(ctx))
	st, err := a.Service.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Records)
	assert.Zero(t, st.QueueDepth)
	assert.Empty(t, st.Jobs)

	res, err = a.Service.AnswerQuery(ctx, "What is the cat?")
	require.NoError(t, err)
	assert.Equal(t, generator.NoResultsAnswer, res.Answer)
}

func TestAppPersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Quarterly revenue grew by ten percent."), 0o644))
	_, err = a.Service.SubmitDocument(ctx, "", path)
	require.NoError(t, err)
	require.NoError(t, a.Worker.Drain(ctx))
	want, err := a.Service.AnswerQuery(ctx, "revenue")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Service.AnswerQuery(ctx, "revenue")
	require.NoError(t, err)
	assert.Equal(t, want.Answer, got.Answer)
	assert.Equal(t, want.Context, got.Context)
}

func TestAppRejectsUnknownVectorStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorStore.Type = "pinecone"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
