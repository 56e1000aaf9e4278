package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
	"pdf-rag/internal/loader"
)

// Submitter queues a file for ingestion.
type Submitter interface {
	SubmitDocument(ctx context.Context, filename, path string) (string, error)
}

// Watcher submits documents dropped into an upload directory. A file is submitted
// once it has seen no write for the settle period.
type Watcher struct {
	dir       string
	submitter Submitter
	settle    time.Duration
	logger    arbor.ILogger
}

// NewWatcher creates a watcher over dir.
func NewWatcher(dir string, submitter Submitter, settle time.Duration, logger arbor.ILogger) *Watcher {
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Watcher{dir: dir, submitter: submitter, settle: settle, logger: logger}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return domain.Wrap(domain.ErrConfiguration, err, "create inbox "+w.dir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return domain.Wrap(domain.ErrConfiguration, err, "start file watcher")
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return domain.Wrap(domain.ErrConfiguration, err, "watch "+w.dir)
	}
	w.logger.Info().Str("dir", w.dir).Msg("Watching inbox for uploads")

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()
	pending := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.accept(ev); ok {
				pending[path] = time.Now()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Inbox watcher error")
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				w.submit(ctx, path)
			}
		}
	}
}

func (w *Watcher) submit(ctx context.Context, path string) {
	id, err := w.submitter.SubmitDocument(ctx, filepath.Base(path), path)
	if err != nil {
		w.logger.Warn().Err(err).Str("filename", filepath.Base(path)).Msg("Inbox submit failed")
		return
	}
	w.logger.Info().Str("job_id", id).Str("filename", filepath.Base(path)).Msg("Inbox file queued")
}

// accept reports whether ev is a create or write of a supported, visible regular file.
func (w *Watcher) accept(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !loader.Supported(name) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}
