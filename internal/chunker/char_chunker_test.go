package chunker

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/domain"
)

func reconstruct(chunks []string, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch)
			continue
		}
		b.WriteString(string([]rune(ch)[overlap:]))
	}
	return b.String()
}

func TestNewCharChunkerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"overlap equals size", []Option{WithSize(100), WithOverlap(100)}},
		{"overlap exceeds size", []Option{WithSize(100), WithOverlap(150)}},
		{"zero size", []Option{WithSize(0), WithOverlap(0)}},
		{"negative overlap", []Option{WithSize(10), WithOverlap(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCharChunker(tt.opts...)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestDefaults(t *testing.T) {
	c, err := NewCharChunker()
	require.NoError(t, err)
	assert.Equal(t, 1000, c.Size())
	assert.Equal(t, 200, c.Overlap())
}

func TestSplitCoverageAndCount(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"exact multiple", 2600, 1000, 200},
		{"long with remainder", 5123, 1000, 200},
		{"shorter than size", 999, 1000, 200},
		{"equal to size", 1000, 1000, 200},
		{"one past size", 1001, 1000, 200},
		{"no overlap", 95, 10, 0},
		{"tiny windows", 37, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tt.length; i++ {
				b.WriteByte(byte('a' + i%26))
			}
			text := b.String()

			c, err := NewCharChunker(WithSize(tt.size), WithOverlap(tt.overlap))
			require.NoError(t, err)
			chunks, err := c.Split(text)
			require.NoError(t, err)

			assert.Equal(t, text, reconstruct(chunks, tt.overlap))
			want := int(math.Ceil(float64(tt.length-tt.overlap) / float64(tt.size-tt.overlap)))
			assert.Len(t, chunks, want)
			for i, ch := range chunks[:len(chunks)-1] {
				assert.Len(t, ch, tt.size, "chunk %d", i)
				next := chunks[i+1]
				assert.Equal(t, ch[tt.size-tt.overlap:], next[:tt.overlap], "overlap between %d and %d", i, i+1)
			}
			assert.LessOrEqual(t, len(chunks[len(chunks)-1]), tt.size)
		})
	}
}

func TestSplitEdgeCases(t *testing.T) {
	c, err := NewCharChunker(WithSize(10), WithOverlap(4))
	require.NoError(t, err)

	chunks, err := c.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Split("abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, chunks)
}

func TestSplitCountsCharactersNotBytes(t *testing.T) {
	c, err := NewCharChunker(WithSize(4), WithOverlap(1))
	require.NoError(t, err)
	text := "héllo wörld"
	chunks, err := c.Split(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"héll", "lo w", "wörl", "ld"}, chunks)
	assert.Equal(t, text, reconstruct(chunks, 1))
}

func TestChunkDocumentKeepsPageOrder(t *testing.T) {
	c, err := NewCharChunker(WithSize(5), WithOverlap(1))
	require.NoError(t, err)
	doc := domain.Document{
		ID:       "doc-1",
		Filename: "report.pdf",
		Path:     "uploads/report.pdf",
		Pages: []domain.Page{
			{Number: 1, Text: "abcdefgh"},
			{Number: 2, Text: ""},
			{Number: 3, Text: "xyz"},
		},
	}
	chunks, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "abcde", chunks[0].Text)
	assert.Equal(t, "efgh", chunks[1].Text)
	assert.Equal(t, "xyz", chunks[2].Text)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, i, ch.Metadata["chunk_index"])
		assert.Equal(t, "doc-1", ch.DocumentID)
		assert.Equal(t, "report.pdf", ch.Metadata["filename"])
		assert.Equal(t, "uploads/report.pdf", ch.Metadata["source"])
	}
	assert.Equal(t, 1, chunks[1].Metadata["page"])
	assert.Equal(t, 3, chunks[2].Metadata["page"])
	assert.Equal(t, 4, chunks[1].Metadata["loc_from"])
	assert.Equal(t, 8, chunks[1].Metadata["loc_to"])
}

func TestChunkIDIsContentHash(t *testing.T) {
	a := ChunkID("uploads/a.pdf", 1, 0, "hello")
	assert.Equal(t, a, ChunkID("uploads/a.pdf", 1, 0, "hello"))
	assert.NotEqual(t, a, ChunkID("uploads/a.pdf", 1, 0, "hello!"))
	assert.NotEqual(t, a, ChunkID("uploads/b.pdf", 1, 0, "hello"))
	assert.Len(t, a, 36)
}
