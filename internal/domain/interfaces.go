package domain

import (
	"context"
	"time"
)

// Page is the extracted text of a single page (or section) of a document.
type Page struct {
	Number int
	Text   string
}

// Document represents a single uploaded file loaded into the system.
type Document struct {
	ID       string
	Filename string
	Path     string
	Pages    []Page
}

// Text returns the page texts joined in page order.
func (d Document) Text() string {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Text) + 2
	}
	buf := make([]byte, 0, n)
	for i, p := range d.Pages {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, p.Text...)
	}
	return string(buf)
}

// Chunk is a contiguous window of a document's text used for indexing.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Index      int
	Metadata   map[string]any
}

// Record is a chunk together with its embedding, as written to a vector store.
type Record struct {
	ID       string
	Vector   []float64
	Text     string
	Metadata map[string]any
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float64
}

// ContextSnippet is a retrieved chunk as returned to the caller of AnswerQuery.
type ContextSnippet struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// AnswerResult is the outcome of a question against the index.
type AnswerResult struct {
	Query   string           `json:"query"`
	Answer  string           `json:"answer"`
	Context []ContextSnippet `json:"context"`
	Source  string           `json:"source"`
}

// JobState is a step of the ingestion state machine.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobLoading   JobState = "loading"
	JobChunking  JobState = "chunking"
	JobEmbedding JobState = "embedding"
	JobUpserting JobState = "upserting"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool { return s == JobCompleted || s == JobFailed }

// JobPayload identifies a previously uploaded file.
type JobPayload struct {
	Filename    string `json:"filename"`
	Destination string `json:"destination"`
	Path        string `json:"path"`
}

// Job is the persisted status of one ingestion request.
type Job struct {
	ID          string
	Payload     JobPayload
	State       JobState
	Error       string
	Chunks      int
	Summary     string
	Attempts    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Loader extracts page text from a source file.
type Loader interface {
	Load(ctx context.Context, filename, path string) (Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Split(text string) ([]string, error)
	ChunkDocument(document Document) ([]Chunk, error)
}

// Embedder converts free text into fixed-length numeric vectors.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// VectorStore persists vectors and supports similarity search within one collection.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Generator produces answer text from a fully built prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// JobStore records the state of ingestion jobs.
type JobStore interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	CountByState(ctx context.Context) (map[JobState]int, error)
}

// RAGService defines the operations exposed by the application core.
type RAGService interface {
	SubmitDocument(ctx context.Context, filename, path string) (jobID string, err error)
	AnswerQuery(ctx context.Context, query string) (*AnswerResult, error)
}
