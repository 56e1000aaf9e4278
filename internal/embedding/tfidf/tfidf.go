package tfidf

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/ternarybob/arbor"
)

const (
	// Dimension is the length of every vector produced by the engine.
	Dimension = 384

	simpleCharFeatures = 100
)

// Embedder turns text into 384-dimensional vectors from TF-IDF statistics over the
// accumulated corpus plus deterministic token hashes. No external model is involved.
//
// Document vectors depend on the corpus at call time: embedding the same text again
// after the corpus has grown can give a different vector.
type Embedder struct {
	state  *CorpusState
	store  StateStore
	logger arbor.ILogger

	saveMu       sync.Mutex
	savedVersion uint64
}

// NewEmbedder creates an embedder over state. A nil state starts an empty corpus.
func NewEmbedder(state *CorpusState, logger arbor.ILogger) *Embedder {
	if state == nil {
		state = NewCorpusState()
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Embedder{state: state, logger: logger}
}

// WithStateStore makes the embedder save a corpus snapshot after every change.
func (e *Embedder) WithStateStore(store StateStore) *Embedder {
	e.store = store
	return e
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return Dimension }

// State exposes the corpus backing this embedder.
func (e *Embedder) State() *CorpusState { return e.state }

// EmbedDocuments adds unseen texts to the corpus, then embeds every input text
// against the updated corpus.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	start := time.Now()
	e.state.mu.Lock()
	added := 0
	for _, text := range texts {
		if e.state.add(text) {
			added++
		}
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.state.embed(text)
	}
	var snap *Snapshot
	var version uint64
	if added > 0 && e.store != nil {
		snap = e.state.snapshot()
		version = e.state.version
	}
	corpusSize := len(e.state.docs)
	vocabSize := len(e.state.vocabulary)
	e.state.mu.Unlock()

	if snap != nil {
		e.save(ctx, snap, version)
	}

	e.logger.Debug().
		Int("texts", len(texts)).
		Int("added", added).
		Int("corpus_size", corpusSize).
		Int("vocabulary_size", vocabSize).
		Str("duration", time.Since(start).String()).
		Msg("Embedded documents")
	return out, nil
}

// save persists snap unless a snapshot of a later corpus version was already
// saved, so concurrent callers never overwrite newer state with older.
func (e *Embedder) save(ctx context.Context, snap *Snapshot, version uint64) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if version <= e.savedVersion {
		e.logger.Debug().Int64("version", int64(version)).Msg("Skipping stale corpus snapshot")
		return
	}
	if err := e.store.SaveCorpus(ctx, snap); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to persist corpus state")
		return
	}
	e.savedVersion = version
}

// EmbedQuery embeds text without adding it to the corpus. With an empty corpus the
// hash-only embedding is used.
func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float64, error) {
	e.state.mu.RLock()
	defer e.state.mu.RUnlock()
	if len(e.state.docs) == 0 {
		return simpleEmbedding(text), nil
	}
	return e.state.embed(text), nil
}

// embed computes the TF-IDF + hash embedding. Caller holds a lock.
func (c *CorpusState) embed(text string) []float64 {
	vec := make([]float64, Dimension)
	tokens := Tokenize(text)

	for i, doc := range c.docs {
		for _, tok := range tokens {
			if doc.counts[tok] == 0 {
				continue
			}
			idx, ok := c.vocabulary[tok]
			if !ok || idx >= Dimension {
				continue
			}
			vec[idx] += c.tfidf(tok, i)
		}
	}

	for i := 0; i < len(tokens) && i < Dimension; i++ {
		vec[Hash(tokens[i])%Dimension] += 1 / float64(len(tokens))
	}

	return normalize(vec)
}

// simpleEmbedding needs no corpus: token and position hashes plus character codes.
func simpleEmbedding(text string) []float64 {
	vec := make([]float64, Dimension)
	for i, tok := range Tokenize(text) {
		vec[Hash(tok)%Dimension] += 1
		vec[Hash(tok+strconv.Itoa(i))%Dimension] += 0.5
	}
	units := utf16.Encode([]rune(text))
	for i := 0; i < len(units) && i < simpleCharFeatures; i++ {
		vec[int(units[i])%Dimension] += 0.1
	}
	return normalize(vec)
}

// normalize scales vec to unit L2 norm in place; the zero vector is returned unchanged.
func normalize(vec []float64) []float64 {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
