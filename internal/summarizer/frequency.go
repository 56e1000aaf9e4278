package summarizer

import (
	"math"
	"regexp"
	"slices"
	"strings"
)

var (
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

// Summarize returns up to maxSentences of the highest scoring sentences, in document order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	var sentences []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		if sent := strings.Join(strings.Fields(m), " "); sent != "" {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		return "", nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = s.tokens(sent)
		for _, tok := range tokens[i] {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i := range sentences {
		score := 0.0
		for _, tok := range tokens[i] {
			score += freq[tok]
		}
		// length normalisation keeps long sentences from dominating
		if l := float64(len(tokens[i])); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	slices.SortStableFunc(scores, func(a, b pair) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	n := min(maxSentences, len(scores))
	selected := make([]int, n)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	slices.Sort(selected)
	out := make([]string, n)
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
