package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"sec-rag/internal/vectorstore"
)

func rankedHit(doc, item string, page int, text string) RankedHit {
	return RankedHit{Hit: vectorstore.Hit{Text: text, Meta: vectorstore.ChunkMeta{DocName: doc, Item: item, PagePDF: page}}}
}

func TestFormatBlock(t *testing.T) {
	printed := 28
	hit := rankedHit("Apple 10-K", "Item 8", 30, "\n  Total net sales  \n")
	hit.Meta.PageReport = &printed

	want := "[DOC=Apple 10-K] [SECTION=Item 8] [PAGE=28]\nTotal net sales"
	if got := FormatBlock(hit); got != want {
		t.Errorf("FormatBlock() = %q, want %q", got, want)
	}
}

func TestBuildContext(t *testing.T) {
	short := rankedHit("Doc", "Item 1", 1, strings.Repeat("a", 50))
	long := rankedHit("Doc", "Item 2", 2, strings.Repeat("b", 500))
	blockLen := utf8.RuneCountInString(FormatBlock(short))

	tests := []struct {
		name     string
		hits     []RankedHit
		maxChars int
		want     int
	}{
		{name: "all fit", hits: []RankedHit{short, short, short}, maxChars: 3 * blockLen, want: 3},
		{name: "greedy stop", hits: []RankedHit{short, long, short}, maxChars: 2 * blockLen, want: 1},
		{name: "first block always kept", hits: []RankedHit{long, short}, maxChars: 10, want: 1},
		{name: "budget boundary", hits: []RankedHit{short, short, short}, maxChars: 2*blockLen + 1, want: 2},
		{name: "no hits", hits: nil, maxChars: 100, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildContext(tt.hits, tt.maxChars)
			if len(got) != tt.want {
				t.Errorf("BuildContext() returned %d blocks, want %d", len(got), tt.want)
			}
		})
	}
}

func TestBuildContext_CountsRunes(t *testing.T) {
	hit := rankedHit("Doc", "Item 1", 1, strings.Repeat("é", 100))
	n := utf8.RuneCountInString(FormatBlock(hit))
	if got := BuildContext([]RankedHit{hit, hit}, 2*n); len(got) != 2 {
		t.Errorf("BuildContext() returned %d blocks, want 2 when budget is measured in characters", len(got))
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := BuildUserPrompt("Q?", []string{"block one", "block two"})
	want := "CONTEXT:\nblock one\n\nblock two\n\nQUESTION:\nQ?\n\nReturn the JSON now."
	if got != want {
		t.Errorf("BuildUserPrompt() = %q, want %q", got, want)
	}
}

func TestSystemPrompt_ContainsRefusals(t *testing.T) {
	for _, msg := range []string{OutOfScopeMessage, NotSpecifiedMessage} {
		if !strings.Contains(SystemPrompt, "\n"+msg+"\n") {
			t.Errorf("SystemPrompt does not contain %q on its own line", msg)
		}
	}
}
