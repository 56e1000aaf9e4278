package loader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

// Loader dispatches on file extension: .txt and .md load as plain text, everything
// else is treated as PDF.
type Loader struct {
	pdf  *PDFLoader
	text TextLoader
}

// New creates a dispatching loader.
func New(logger arbor.ILogger) *Loader {
	return &Loader{pdf: NewPDFLoader(logger)}
}

func (l *Loader) Load(ctx context.Context, filename, path string) (domain.Document, error) {
	name := filename
	if name == "" {
		name = filepath.Base(path)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return l.text.Load(ctx, name, path)
	default:
		return l.pdf.Load(ctx, name, path)
	}
}

// Supported reports whether name has an extension the loader handles.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}
