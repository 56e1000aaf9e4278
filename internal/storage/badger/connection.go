package badger

import (
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"pdf-rag/internal/domain"
)

// DB manages the Badger database shared by the job store, the corpus store and the queue.
// Badger takes an exclusive lock on its directory, so one process owns it at a time.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// Open opens (or creates) the database at path. An empty path opens an in-memory database.
func Open(path string, logger arbor.ILogger) (*DB, error) {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	options := badgerhold.DefaultOptions
	options.Logger = nil
	if path == "" {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, domain.Wrap(domain.ErrStore, err, "create database directory")
		}
		options.Dir = path
		options.ValueDir = path
	}

	logger.Debug().Str("path", path).Bool("in_memory", options.InMemory).Msg("Opening Badger database")
	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, domain.Wrap(domain.ErrStore, err, "open badger database")
	}
	return &DB{store: store, logger: logger, path: path}, nil
}

// Store returns the underlying badgerhold store.
func (d *DB) Store() *badgerhold.Store { return d.store }

// Badger returns the raw Badger handle, used by the job queue.
func (d *DB) Badger() *badger.DB { return d.store.Badger() }

// Close closes the database connection.
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
