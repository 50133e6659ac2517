package rag

import (
	"fmt"
	"time"

	"sec-rag/internal/vectorstore"
)

// Fixed refusal texts. Every refusal path ends in one of these two strings.
const (
	OutOfScopeMessage   = "This question cannot be answered based on the provided documents."
	NotSpecifiedMessage = "Not specified in the document."
)

// Kind identifies which terminal state a query reached.
type Kind int

const (
	// KindNotSpecified means the documents do not support an answer.
	KindNotSpecified Kind = iota
	// KindOutOfScope means the question falls outside the corpus coverage.
	KindOutOfScope
	// KindAnswered means a verified answer with a source.
	KindAnswered
)

func (k Kind) String() string {
	switch k {
	case KindOutOfScope:
		return "out_of_scope"
	case KindAnswered:
		return "answered"
	default:
		return "not_specified"
	}
}

// Reason is a machine-readable explanation of why a query was refused.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonScope            Reason = "scope"
	ReasonNoHits           Reason = "no_hits"
	ReasonRetrievalFailed  Reason = "retrieval_failed"
	ReasonRerankFailed     Reason = "rerank_failed"
	ReasonLowConfidence    Reason = "low_confidence"
	ReasonGenerationFailed Reason = "generation_failed"
	ReasonModelRefused     Reason = "model_refused"
	ReasonNotAnswerable    Reason = "not_answerable"
	ReasonEvidenceMismatch Reason = "evidence_mismatch"
)

// Outcome is the result of one query.
type Outcome struct {
	Kind Kind
	// Answer is set only when Kind is KindAnswered.
	Answer string
	// Sources is [document, section, "p. <page>"] when Kind is KindAnswered.
	Sources []string
	Reason  Reason
}

// Text returns the user-facing answer text for the outcome.
func (o Outcome) Text() string {
	switch o.Kind {
	case KindAnswered:
		return o.Answer
	case KindOutOfScope:
		return OutOfScopeMessage
	default:
		return NotSpecifiedMessage
	}
}

// Result converts the outcome to the wire shape. Sources is never nil.
func (o Outcome) Result() QueryResult {
	sources := []string{}
	if o.Kind == KindAnswered {
		sources = append(sources, o.Sources...)
	}
	return QueryResult{Answer: o.Text(), Sources: sources}
}

func outOfScope(reason Reason) Outcome {
	return Outcome{Kind: KindOutOfScope, Reason: reason}
}

func notSpecified(reason Reason) Outcome {
	return Outcome{Kind: KindNotSpecified, Reason: reason}
}

// QueryResult is the public answer contract.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// GeneratedAnswer is the JSON object the generator is instructed to emit.
type GeneratedAnswer struct {
	Answer     string   `json:"answer"`
	Answerable bool     `json:"answerable"`
	Evidence   []string `json:"evidence"`
}

// RankedHit is a retrieval hit re-scored by the reranker.
type RankedHit struct {
	vectorstore.Hit
	// RetrievalRank is the 1-based position in the retrieval result.
	RetrievalRank int
	RerankScore   float64
}

// formatSource builds the citation triple for a hit.
func formatSource(meta vectorstore.ChunkMeta) []string {
	return []string{meta.DocName, meta.Item, fmt.Sprintf("p. %d", meta.Page())}
}

// DebugInfo contains per-stage details of one query for debugging and evaluation.
type DebugInfo struct {
	// ScopeRule is the scope rule that tripped, if any.
	ScopeRule string `json:"scope_rule,omitempty"`
	// RetrievedChunks holds the reranked candidates in final rank order.
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	// ContextBlocks are the blocks sent to the generator.
	ContextBlocks []string `json:"context_blocks,omitempty"`
	// RawGeneration is the generator's unparsed output.
	RawGeneration string  `json:"raw_generation,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	Timings       Timings `json:"timings"`
}

// RetrievedChunk represents a candidate chunk with scoring information.
type RetrievedChunk struct {
	ChunkID       string  `json:"chunk_id"`
	DocName       string  `json:"doc_name"`
	Item          string  `json:"item"`
	Page          int     `json:"page"`
	ScoreVector   float64 `json:"score_vector"`
	ScoreRerank   float64 `json:"score_rerank"`
	RetrievalRank int     `json:"retrieval_rank"`
	Rank          int     `json:"rank"`
	Text          string  `json:"text"`
}

// Timings records stage latencies in milliseconds.
type Timings struct {
	EmbedMS    int64 `json:"embed_ms"`
	SearchMS   int64 `json:"search_ms"`
	RerankMS   int64 `json:"rerank_ms"`
	GenerateMS int64 `json:"generate_ms"`
	TotalMS    int64 `json:"total_ms"`
}

func sinceMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
