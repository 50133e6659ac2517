package rag

import (
	"context"
	"strings"
	"unicode"
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"did": {}, "do": {}, "does": {}, "for": {}, "from": {}, "has": {}, "have": {}, "how": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "s": {}, "the": {},
	"to": {}, "was": {}, "were": {}, "what": {}, "which": {}, "who": {}, "with": {},
}

// LexicalReranker scores passages by query-term coverage. It stands in for a
// cross-encoder when no rerank endpoint is configured.
type LexicalReranker struct{}

// Rerank implements Reranker.
func (LexicalReranker) Rerank(_ context.Context, query string, passages []string) ([]float64, error) {
	scores := make([]float64, len(passages))
	for i, p := range passages {
		scores[i] = lexicalScore(query, p)
	}
	return scores, nil
}

// lexicalScore is the fraction of distinct non-stopword query terms found in the chunk.
func lexicalScore(query, chunkText string) float64 {
	queryTokens := uniqueTokens(filterStopwords(tokenize(query)))
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := tokenize(chunkText)
	if len(chunkTokens) == 0 {
		return 0
	}
	chunkSet := make(map[string]struct{}, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkSet[token] = struct{}{}
	}

	var matches int
	for _, token := range queryTokens {
		if _, ok := chunkSet[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTokens))
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	return result
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	result := tokens[:0]
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}
