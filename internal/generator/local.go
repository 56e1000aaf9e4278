package generator

import (
	"strings"

	"pdf-rag/internal/domain"
)

const (
	// NoResultsAnswer is returned when retrieval found nothing.
	NoResultsAnswer = "I couldn't find any relevant information in the PDF to answer your query."

	snippetLength = 200
)

// ContextText joins result texts with blank lines, in rank order.
func ContextText(results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n\n")
}

// BuildPrompt renders the generation prompt for query over the retrieved results.
func BuildPrompt(query string, results []domain.SearchResult) string {
	return "You are a helpful AI assistant. Answer the user's query based on the following context from a PDF document. If the context doesn't contain relevant information, say so.\n\n" +
		"Context:\n" + ContextText(results) + "\n\n" +
		"User Query: " + query + "\n\n" +
		"Please provide a helpful answer based on the context above."
}

// LocalAnswer builds an answer from the retrieved text alone. It is a pure function
// of its inputs.
func LocalAnswer(query string, results []domain.SearchResult) string {
	if len(results) == 0 {
		return NoResultsAnswer
	}
	contextText := ContextText(results)
	queryLower := strings.ToLower(query)
	contextLower := strings.ToLower(contextText)

	if strings.Contains(contextLower, strings.ReplaceAll(queryLower, "?", "")) {
		return "Based on the PDF content, here's what I found:\n\n" + truncate(contextText, 500)
	}
	if strings.Contains(queryLower, "what is") ||
		strings.Contains(queryLower, "who is") ||
		strings.Contains(queryLower, "where is") {
		return "Here's the relevant information from the PDF:\n\n" + truncate(contextText, 400)
	}
	return "I found some related content in the PDF:\n\n" + truncate(contextText, 300) +
		"\n\nThis might help answer your question about: " + query
}

// Snippets returns the caller-facing context: each text cut to 200 characters and
// always followed by an ellipsis, with its metadata.
func Snippets(results []domain.SearchResult) []domain.ContextSnippet {
	out := make([]domain.ContextSnippet, len(results))
	for i, r := range results {
		out[i] = domain.ContextSnippet{
			Content:  prefix(r.Text, snippetLength) + "...",
			Metadata: r.Metadata,
		}
	}
	return out
}

// truncate keeps the first n characters and marks a cut with an ellipsis.
func truncate(s string, n int) string {
	p := prefix(s, n)
	if len(p) < len(s) {
		return p + "..."
	}
	return p
}

func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
