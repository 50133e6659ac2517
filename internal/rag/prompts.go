package rag

import (
	"fmt"
	"strings"
)

// SystemPrompt constrains the generator to the two filings and the JSON contract.
const SystemPrompt = `You are a precise financial/legal assistant answering questions about two SEC filings:
- Apple 10-K (fiscal year ended Sep 28, 2024)
- Tesla 10-K (year ended Dec 31, 2023)

STRICT RULES (must follow):
1) Use ONLY the provided CONTEXT. Do not use external knowledge.
2) If the answer cannot be found in the context, output exactly:
` + NotSpecifiedMessage + `
3) If the question is out-of-scope (future forecast, 2025-only facts, trivia not in filings), output exactly:
` + OutOfScopeMessage + `
4) Output MUST be valid JSON with keys:
- answer: string
- answerable: boolean
- evidence: list of exact substrings copied from CONTEXT (can be empty if not answerable)
No extra keys, no markdown.
`

// BuildUserPrompt joins the context blocks with blank lines and appends the question.
func BuildUserPrompt(question string, contextBlocks []string) string {
	return fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s\n\nReturn the JSON now.", strings.Join(contextBlocks, "\n\n"), question)
}
