package tfidf

import (
	"context"
	"math"
	"sync"
)

// CorpusState is the accumulated corpus and vocabulary behind document embeddings.
// It only grows: documents are appended, tokens get the next free index and keep it.
type CorpusState struct {
	mu         sync.RWMutex
	docs       []corpusDoc
	seen       map[string]struct{}
	df         map[string]int
	vocabulary map[string]int
	stopwords  map[string]struct{}
	// version counts changes; snapshots taken at a lower version are stale.
	version uint64
}

type corpusDoc struct {
	text   string
	counts map[string]int
}

// Snapshot is the serialisable form of a CorpusState.
type Snapshot struct {
	Documents  []string       `json:"documents"`
	Vocabulary map[string]int `json:"vocabulary"`
}

// StateStore persists corpus snapshots between runs.
type StateStore interface {
	LoadCorpus(ctx context.Context) (*Snapshot, error)
	SaveCorpus(ctx context.Context, snapshot *Snapshot) error
}

// NewCorpusState returns an empty corpus.
func NewCorpusState() *CorpusState {
	return &CorpusState{
		seen:       make(map[string]struct{}),
		df:         make(map[string]int),
		vocabulary: make(map[string]int),
		stopwords:  defaultStopwords(),
	}
}

// RestoreCorpusState rebuilds term statistics from a snapshot. Vocabulary indices
// are taken from the snapshot as-is; tokens missing from it are appended.
func RestoreCorpusState(s *Snapshot) *CorpusState {
	c := NewCorpusState()
	if s == nil {
		return c
	}
	for tok, idx := range s.Vocabulary {
		c.vocabulary[tok] = idx
	}
	for _, text := range s.Documents {
		c.add(text)
	}
	return c
}

// LoadState restores the corpus from store, or returns an empty one when nothing was saved.
func LoadState(ctx context.Context, store StateStore) (*CorpusState, error) {
	snap, err := store.LoadCorpus(ctx)
	if err != nil {
		return nil, err
	}
	return RestoreCorpusState(snap), nil
}

// Len returns the number of corpus documents.
func (c *CorpusState) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// VocabularyIndex returns the index assigned to token.
func (c *CorpusState) VocabularyIndex(token string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.vocabulary[token]
	return idx, ok
}

// VocabularySize returns the number of distinct tokens seen.
func (c *CorpusState) VocabularySize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vocabulary)
}

// Snapshot copies the state for persistence.
func (c *CorpusState) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

func (c *CorpusState) snapshot() *Snapshot {
	s := &Snapshot{
		Documents:  make([]string, len(c.docs)),
		Vocabulary: make(map[string]int, len(c.vocabulary)),
	}
	for i, d := range c.docs {
		s.Documents[i] = d.text
	}
	for tok, idx := range c.vocabulary {
		s.Vocabulary[tok] = idx
	}
	return s
}

// add appends text unless it is already part of the corpus. Caller holds the write lock.
// New tokens are indexed in corpus order, which is what rebuilding the vocabulary over
// the whole corpus yields, since earlier documents' tokens are already present.
func (c *CorpusState) add(text string) bool {
	if _, ok := c.seen[text]; ok {
		return false
	}
	c.seen[text] = struct{}{}
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		if _, ok := c.vocabulary[tok]; !ok {
			c.vocabulary[tok] = len(c.vocabulary)
		}
		if counts[tok] == 0 {
			if _, stop := c.stopwords[tok]; !stop {
				c.df[tok]++
			}
		}
		counts[tok]++
	}
	c.docs = append(c.docs, corpusDoc{text: text, counts: counts})
	c.version++
	return true
}

// tfidf scores term against document i: raw term count times 1+ln(N/(1+df)).
// Stopwords score zero. Caller holds a lock.
func (c *CorpusState) tfidf(term string, i int) float64 {
	if _, stop := c.stopwords[term]; stop {
		return 0
	}
	tf := c.docs[i].counts[term]
	if tf == 0 {
		return 0
	}
	idf := 1 + math.Log(float64(len(c.docs))/float64(1+c.df[term]))
	return float64(tf) * idf
}

// Reset drops every document and vocabulary entry.
func (c *CorpusState) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = nil
	c.seen = make(map[string]struct{})
	c.df = make(map[string]int)
	c.vocabulary = make(map[string]int)
	c.version++
}
