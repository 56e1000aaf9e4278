package tfidf

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// Words are runs of ASCII letters, basic Cyrillic letters, digits and underscores.
// Any other rune, accented Latin letters included, separates tokens.
var wordPattern = regexp.MustCompile(`[A-Za-zА-Яа-я0-9_]+`)

// Tokenize lowercases text and returns its word tokens in order.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Hash is the multiply-by-31 rolling hash over UTF-16 code units with
// 32-bit two's-complement wraparound, returned as an absolute value.
func Hash(s string) int64 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// defaultStopwords is the English list applied to term weighting. Single letters
// and digits are included, so fragments left by the tokenizer carry no weight.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"about", "above", "after", "again", "all", "also", "am", "an", "and", "another",
		"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
		"between", "both", "but", "by", "came", "can", "cannot", "come", "could", "did",
		"do", "does", "doing", "during", "each", "few", "for", "from", "further", "get",
		"got", "has", "had", "he", "have", "her", "here", "him", "himself", "his",
		"how", "if", "in", "into", "is", "it", "its", "itself", "like", "make",
		"many", "me", "might", "more", "most", "much", "must", "my", "myself", "never",
		"now", "of", "on", "only", "or", "other", "our", "ours", "ourselves", "out",
		"over", "own", "said", "same", "see", "should", "since", "so", "some", "still",
		"such", "take", "than", "that", "the", "their", "theirs", "them", "themselves", "then",
		"there", "these", "they", "this", "those", "through", "to", "too", "under", "until",
		"up", "very", "was", "way", "we", "well", "were", "what", "where", "when",
		"which", "while", "who", "whom", "with", "would", "why", "you", "your", "yours",
		"yourself",
		"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
		"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
		"$", "1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "_",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
