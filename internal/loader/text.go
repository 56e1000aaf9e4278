package loader

import (
	"context"
	"os"
	"strings"

	"pdf-rag/internal/domain"
)

// TextLoader loads plain-text files as a single page.
type TextLoader struct{}

func (TextLoader) Load(ctx context.Context, filename, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, domain.Wrap(domain.ErrLoad, err, "read "+path)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return domain.Document{
		ID:       path,
		Filename: filename,
		Path:     path,
		Pages:    []domain.Page{{Number: 1, Text: text}},
	}, nil
}
