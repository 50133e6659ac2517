package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatBlock renders one hit as a context block with a citation header.
func FormatBlock(hit RankedHit) string {
	header := fmt.Sprintf("[DOC=%s] [SECTION=%s] [PAGE=%d]", hit.Meta.DocName, hit.Meta.Item, hit.Meta.Page())
	return header + "\n" + strings.TrimSpace(hit.Text)
}

// BuildContext accumulates blocks in rank order while the running length
// stays within maxChars. The first block is always kept.
func BuildContext(hits []RankedHit, maxChars int) []string {
	blocks := make([]string, 0, len(hits))
	total := 0
	for _, hit := range hits {
		block := FormatBlock(hit)
		n := utf8.RuneCountInString(block)
		if total+n > maxChars && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
		total += n
	}
	return blocks
}
