package indexer

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	itemRe          = regexp.MustCompile(`(?im)^\s*item\s+(\d{1,2}[a-z]?)\.?\s*(.*)$`)
	footerPageRe    = regexp.MustCompile(`\|\s*(\d{1,4})\s*$`)
	hyphenBreakRe   = regexp.MustCompile(`(\w)-\n(\w)`)
	inlineSpaceRe   = regexp.MustCompile(`[ \t\x{00A0}]+`)
	blankLineRunsRe = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes extracted page text: drops carriage returns, joins
// hyphenated line breaks, trims lines, collapses inline whitespace and
// limits blank-line runs to one.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = inlineSpaceRe.ReplaceAllString(strings.TrimSpace(line), " ")
	}
	text = strings.Join(lines, "\n")
	text = blankLineRunsRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// detectReportPage reads the printed page number from a footer such as
// "Apple Inc. | 2024 Form 10-K | 56" on the last non-empty line.
func detectReportPage(raw string) *int {
	lines := strings.Split(raw, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		tail := strings.TrimSpace(lines[i])
		if tail == "" {
			continue
		}
		m := footerPageRe.FindStringSubmatch(tail)
		if m == nil {
			return nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// detectItem returns the first section heading on the page, e.g. ("Item 1A", "Risk Factors").
func detectItem(text string) (string, string, bool) {
	m := itemRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return "Item " + strings.ToUpper(m[1]), strings.TrimSpace(m[2]), true
}

// inferDocument maps a file name to a company and document name.
func inferDocument(path string) (company, docName string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	lower := strings.ToLower(stem)
	switch {
	case strings.Contains(lower, "tsla") || strings.Contains(lower, "tesla"):
		return "Tesla", "Tesla 10-K"
	case strings.Contains(lower, "apple") || strings.Contains(lower, "q4-2024"):
		return "Apple", "Apple 10-K"
	}
	return "Unknown", stem
}
