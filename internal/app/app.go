package app

import (
	"context"
	"errors"
	"io"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/chunker"
	"pdf-rag/internal/config"
	"pdf-rag/internal/domain"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/embedding/tfidf"
	"pdf-rag/internal/generator"
	"pdf-rag/internal/inbox"
	"pdf-rag/internal/ingest"
	"pdf-rag/internal/loader"
	"pdf-rag/internal/queue"
	"pdf-rag/internal/service"
	badgerstore "pdf-rag/internal/storage/badger"
	"pdf-rag/internal/summarizer"
	"pdf-rag/internal/vectorstore"
)

// App holds the wired components of one process.
type App struct {
	Config   *config.AppConfig
	Logger   arbor.ILogger
	DB       *badgerstore.DB
	Jobs     *badgerstore.JobStore
	Corpus   *badgerstore.CorpusStore
	Queue    *queue.BadgerQueue
	Embedder domain.Embedder
	Store    domain.VectorStore
	Service  *service.RAGServiceImpl
	Worker   *ingest.Worker
	Inbox    *inbox.Watcher

	storeCloser io.Closer
}

// New opens storage and builds every component from cfg.
func New(ctx context.Context, cfg *config.AppConfig, logger arbor.ILogger) (*App, error) {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	db, err := badgerstore.Open(cfg.Storage.BadgerPath, logger)
	if err != nil {
		return err
	}
	a.DB = db
	a.Jobs = badgerstore.NewJobStore(db, logger)
	a.Corpus = badgerstore.NewCorpusStore(db, logger)

	a.Queue, err = queue.NewBadgerQueue(db.Badger(), cfg.Queue.Name, cfg.Queue.Visibility(), cfg.Queue.MaxReceive, logger)
	if err != nil {
		return err
	}

	a.Embedder, err = embedding.New(ctx, cfg.Embedder, a.Corpus, logger)
	if err != nil {
		return err
	}

	a.Store, a.storeCloser, err = vectorstore.New(cfg.VectorStore, logger)
	if err != nil {
		return err
	}

	ch, err := chunker.NewCharChunker(chunker.WithSize(cfg.Chunker.Size), chunker.WithOverlap(cfg.Chunker.Overlap))
	if err != nil {
		return err
	}

	var opts []ingest.Option
	if cfg.Summarizer.Type == "frequency" {
		opts = append(opts, ingest.WithSummarizer(summarizer.NewFrequencySummarizer(), cfg.Summarizer.MaxSentences))
	}
	pipeline := ingest.NewPipeline(loader.New(logger), ch, a.Embedder, a.Store, a.Jobs, logger, opts...)
	a.Worker = ingest.NewWorker(a.Queue, a.Jobs, pipeline, ingest.WorkerConfig{
		Concurrency:  cfg.Queue.Concurrency,
		PollInterval: cfg.Queue.PollEvery(),
		Visibility:   cfg.Queue.Visibility(),
	}, logger)

	remote, err := generator.NewRemote(ctx, cfg.Generator, logger)
	if err != nil {
		return err
	}
	a.Service = service.NewRAGService(service.Deps{
		Jobs:     a.Jobs,
		Queue:    a.Queue,
		Embedder: a.Embedder,
		Store:    a.Store,
		Answerer: generator.NewAnswerer(remote, cfg.Generator.TimeoutDuration(), logger),
		TopK:     cfg.Retrieval.TopK,
		Logger:   logger,
	})
	a.Inbox = inbox.NewWatcher(cfg.Inbox.Dir, a.Service, 0, logger)
	return nil
}

// Reset empties the vector collection, the embedding corpus, the job records and the queue.
func (a *App) Reset(ctx context.Context) error {
	if err := a.Store.Clear(ctx); err != nil {
		return err
	}
	if err := a.Corpus.Clear(ctx); err != nil {
		return err
	}
	if e, ok := a.Embedder.(*tfidf.Embedder); ok {
		e.State().Reset()
	}
	if err := a.Jobs.DeleteAll(ctx); err != nil {
		return err
	}
	if err := a.Queue.Purge(ctx); err != nil {
		return err
	}
	a.Logger.Info().Msg("Index, corpus, jobs and queue cleared")
	return nil
}

// Close releases the vector store and the database.
func (a *App) Close() error {
	var errs []error
	if a.storeCloser != nil {
		errs = append(errs, a.storeCloser.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
