package rag

import "testing"

func TestEvidenceMatches(t *testing.T) {
	blocks := []string{"Revenue was $10B in 2023."}
	tests := []struct {
		name     string
		blocks   []string
		evidence []string
		want     bool
	}{
		{name: "exact substring", blocks: blocks, evidence: []string{"Revenue was $10B in 2023."}, want: true},
		{name: "altered figure", blocks: blocks, evidence: []string{"Revenue was $20B in 2023."}, want: false},
		{name: "case differs", blocks: blocks, evidence: []string{"revenue was $10B"}, want: false},
		{name: "partial substring", blocks: blocks, evidence: []string{"$10B"}, want: true},
		{name: "empty list", blocks: blocks, evidence: nil, want: true},
		{name: "empty strings skipped", blocks: blocks, evidence: []string{"", "$10B"}, want: true},
		{name: "one of many fails", blocks: blocks, evidence: []string{"$10B", "$11B"}, want: false},
		{
			name:     "spans a block boundary",
			blocks:   []string{"first block ends", "second block starts"},
			evidence: []string{"ends\nsecond"},
			want:     true,
		},
		{name: "no context", blocks: nil, evidence: []string{"x"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvidenceMatches(tt.blocks, tt.evidence); got != tt.want {
				t.Errorf("EvidenceMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasEvidence(t *testing.T) {
	if hasEvidence(nil) || hasEvidence([]string{"", ""}) {
		t.Error("hasEvidence() should be false without non-empty strings")
	}
	if !hasEvidence([]string{"", "x"}) {
		t.Error("hasEvidence() should be true with a non-empty string")
	}
}
