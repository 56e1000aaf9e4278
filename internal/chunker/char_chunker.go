package chunker

import (
	"strconv"

	"github.com/google/uuid"

	"pdf-rag/internal/domain"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of characters shared by consecutive chunks.
	DefaultChunkOverlap = 200
)

// recordNamespace scopes content-hash chunk ids.
var recordNamespace = uuid.MustParse("6f1c9a52-3a55-4f4e-9d53-0b8f8d0f2a71")

// CharChunker splits text into fixed-size character windows with overlap.
type CharChunker struct {
	size    int
	overlap int
}

// Option configures a CharChunker.
type Option func(*CharChunker)

// WithSize sets the window size in characters.
func WithSize(size int) Option {
	return func(c *CharChunker) { c.size = size }
}

// WithOverlap sets the number of characters repeated between consecutive windows.
func WithOverlap(overlap int) Option {
	return func(c *CharChunker) { c.overlap = overlap }
}

// NewCharChunker validates the window parameters before any chunking happens.
func NewCharChunker(opts ...Option) (*CharChunker, error) {
	c := &CharChunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.size <= 0 {
		return nil, domain.Errorf(domain.ErrConfiguration, "chunk size must be positive, got %d", c.size)
	}
	if c.overlap < 0 {
		return nil, domain.Errorf(domain.ErrConfiguration, "chunk overlap must not be negative, got %d", c.overlap)
	}
	if c.overlap >= c.size {
		return nil, domain.Errorf(domain.ErrConfiguration, "chunk overlap (%d) must be smaller than chunk size (%d)", c.overlap, c.size)
	}
	return c, nil
}

// Size returns the configured window size.
func (c *CharChunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *CharChunker) Overlap() int { return c.overlap }

// Split returns windows of exactly size characters stepping by size-overlap.
// The last window runs to the end of the text and may be shorter.
func (c *CharChunker) Split(text string) ([]string, error) {
	spans := c.spans(text)
	runes := []rune(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s[0]:s[1]])
	}
	return out, nil
}

// spans returns [start,end) rune offsets of each window.
func (c *CharChunker) spans(text string) [][2]int {
	n := len([]rune(text))
	if n == 0 {
		return nil
	}
	step := c.size - c.overlap
	spans := make([][2]int, 0, n/step+1)
	for start := 0; ; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		spans = append(spans, [2]int{start, end})
		if end == n {
			break
		}
	}
	return spans
}

// ChunkDocument splits every page in page order. Chunk indexes run across the whole document.
func (c *CharChunker) ChunkDocument(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	idx := 0
	for _, page := range document.Pages {
		runes := []rune(page.Text)
		for _, s := range c.spans(page.Text) {
			text := string(runes[s[0]:s[1]])
			chunks = append(chunks, domain.Chunk{
				ID:         ChunkID(document.Path, page.Number, idx, text),
				DocumentID: document.ID,
				Text:       text,
				Index:      idx,
				Metadata: map[string]any{
					"source":      document.Path,
					"filename":    document.Filename,
					"page":        page.Number,
					"chunk_index": idx,
					"loc_from":    s[0],
					"loc_to":      s[1],
				},
			})
			idx++
		}
	}
	return chunks, nil
}

// ChunkID derives a stable id from a chunk's provenance and content, so re-ingesting
// the same file yields the same ids.
func ChunkID(source string, page, index int, text string) string {
	key := source + "|" + strconv.Itoa(page) + "|" + strconv.Itoa(index) + "|" + text
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}
