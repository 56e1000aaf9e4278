package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingSubmitter) SubmitDocument(_ context.Context, _ string, path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return "job-" + filepath.Base(path), nil
}

func (r *recordingSubmitter) submitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestAccept(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		return p
	}
	sub := filepath.Join(dir, "nested.pdf")
	require.NoError(t, os.Mkdir(sub, 0o755))

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create pdf", write("report.pdf"), fsnotify.Create, true},
		{"write text", write("notes.txt"), fsnotify.Write, true},
		{"chmod ignored", write("chmod.pdf"), fsnotify.Chmod, false},
		{"remove ignored", filepath.Join(dir, "gone.pdf"), fsnotify.Remove, false},
		{"hidden ignored", write(".partial.pdf"), fsnotify.Create, false},
		{"unsupported ignored", write("photo.jpg"), fsnotify.Create, false},
		{"directory ignored", sub, fsnotify.Create, false},
	}
	w := NewWatcher(dir, &recordingSubmitter{}, 0, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.accept(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.path, got)
			}
		})
	}
}

func TestRunSubmitsNewFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingSubmitter{}
	w := NewWatcher(dir, rec, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.png"), []byte("png"), 0o644))

	assert.Eventually(t, func() bool { return len(rec.submitted()) == 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{path}, rec.submitted())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunCreatesInbox(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, NewWatcher(dir, &recordingSubmitter{}, 0, nil).Run(ctx))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
