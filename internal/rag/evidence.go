package rag

import "strings"

// EvidenceMatches reports whether every non-empty evidence string occurs
// verbatim in the context blocks joined by newlines. Matching is case-sensitive.
func EvidenceMatches(contextBlocks []string, evidence []string) bool {
	ctx := strings.Join(contextBlocks, "\n")
	for _, ev := range evidence {
		if ev == "" {
			continue
		}
		if !strings.Contains(ctx, ev) {
			return false
		}
	}
	return true
}

// hasEvidence reports whether at least one evidence string is non-empty.
func hasEvidence(evidence []string) bool {
	for _, ev := range evidence {
		if ev != "" {
			return true
		}
	}
	return false
}
