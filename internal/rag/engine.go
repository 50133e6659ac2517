package rag

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/scope"
	"sec-rag/internal/vectorstore"
)

// Options tunes the pipeline thresholds.
type Options struct {
	// TopK is the number of chunks retrieved per query.
	TopK int
	// RerankMinScore is the minimum top rerank score required to attempt generation.
	RerankMinScore float64
	// MaxContextChars bounds the assembled context.
	MaxContextChars int
	// RequireEvidenceMatch rejects answers whose evidence is not verbatim in the context.
	RequireEvidenceMatch bool
	// StrictEvidence also rejects answerable claims that cite no evidence at all.
	StrictEvidence bool
	// GenerationTimeout bounds one generator call. Zero means no limit.
	GenerationTimeout time.Duration
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		TopK:                 5,
		RerankMinScore:       0.15,
		MaxContextChars:      9000,
		RequireEvidenceMatch: true,
		GenerationTimeout:    60 * time.Second,
	}
}

// Engine runs scope gate, retrieval, reranking, confidence gate, context
// assembly, generation and evidence verification for one query at a time.
// It holds no per-query state and is safe for concurrent use when its
// collaborators are.
type Engine struct {
	gate      *scope.Gate
	retriever vectorstore.Retriever
	embedder  Embedder
	reranker  Reranker
	generator Generator
	opts      Options
}

// NewEngine creates a new engine. A nil reranker selects LexicalReranker.
func NewEngine(
	gate *scope.Gate,
	retriever vectorstore.Retriever,
	embedder Embedder,
	reranker Reranker,
	generator Generator,
	opts Options,
) *Engine {
	if reranker == nil {
		reranker = LexicalReranker{}
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = DefaultOptions().MaxContextChars
	}
	return &Engine{
		gate:      gate,
		retriever: retriever,
		embedder:  embedder,
		reranker:  reranker,
		generator: generator,
		opts:      opts,
	}
}

// Answer runs the pipeline for query. Per-query failures become refusals.
func (e *Engine) Answer(ctx context.Context, query string) Outcome {
	return e.run(ctx, query, nil)
}

// AnswerWithDebug runs the pipeline and also returns per-stage details.
func (e *Engine) AnswerWithDebug(ctx context.Context, query string) (Outcome, *DebugInfo) {
	dbg := &DebugInfo{RetrievedChunks: []RetrievedChunk{}}
	out := e.run(ctx, query, dbg)
	dbg.Reason = string(out.Reason)
	return out, dbg
}

func (e *Engine) run(ctx context.Context, query string, dbg *DebugInfo) Outcome {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()
	defer func() {
		if dbg != nil {
			dbg.Timings.TotalMS = sinceMS(start)
		}
	}()

	if verdict := e.gate.Classify(query); verdict.OutOfScope {
		logger.InfoContext(ctx, "query rejected by scope gate", "rule", verdict.Rule, "term", verdict.Term, "year", verdict.Year)
		if dbg != nil {
			dbg.ScopeRule = string(verdict.Rule)
		}
		return outOfScope(ReasonScope)
	}

	hits, err := e.retrieve(ctx, query, dbg)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return notSpecified(ReasonRetrievalFailed)
	}
	if len(hits) == 0 {
		logger.InfoContext(ctx, "no chunks retrieved")
		return notSpecified(ReasonNoHits)
	}

	stageStart := time.Now()
	ranked, err := e.rerank(ctx, query, hits)
	if dbg != nil {
		dbg.Timings.RerankMS = sinceMS(stageStart)
	}
	if err != nil {
		logger.ErrorContext(ctx, "rerank failed", "error", err)
		return notSpecified(ReasonRerankFailed)
	}
	if dbg != nil {
		dbg.RetrievedChunks = debugChunks(ranked)
	}

	best := ranked[0]
	logger.DebugContext(ctx, "reranked chunks", "top_chunk", best.Meta.ChunkID, "top_score", best.RerankScore, "candidates", len(ranked))
	// Written as a negation so a NaN score fails the gate.
	if !(best.RerankScore >= e.opts.RerankMinScore) {
		logger.InfoContext(ctx, "top rerank score below threshold", "score", best.RerankScore, "threshold", e.opts.RerankMinScore)
		return notSpecified(ReasonLowConfidence)
	}

	blocks := BuildContext(ranked, e.opts.MaxContextChars)
	if dbg != nil {
		dbg.ContextBlocks = blocks
	}

	stageStart = time.Now()
	raw, err := e.generate(ctx, BuildUserPrompt(query, blocks))
	if dbg != nil {
		dbg.Timings.GenerateMS = sinceMS(stageStart)
		dbg.RawGeneration = raw
	}
	if err != nil {
		logger.WarnContext(ctx, "generation failed", "error", err)
		return notSpecified(ReasonGenerationFailed)
	}

	gen, err := ParseGeneratedAnswer(raw)
	if err != nil {
		logger.WarnContext(ctx, "generator output is not a JSON answer", "error", err, "output_length", len(raw))
		return notSpecified(ReasonGenerationFailed)
	}

	return e.validate(ctx, gen, blocks, best)
}

// retrieve embeds the query once and fetches the nearest chunks.
func (e *Engine) retrieve(ctx context.Context, query string, dbg *DebugInfo) ([]vectorstore.Hit, error) {
	stageStart := time.Now()
	vecs, err := e.embedder.EmbedTexts(ctx, []string{query})
	if dbg != nil {
		dbg.Timings.EmbedMS = sinceMS(stageStart)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}

	stageStart = time.Now()
	hits, err := e.retriever.Retrieve(ctx, vecs[0], e.opts.TopK)
	if dbg != nil {
		dbg.Timings.SearchMS = sinceMS(stageStart)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	return hits, nil
}

// rerank scores every hit and sorts by descending rerank score. Ties keep retrieval order.
func (e *Engine) rerank(ctx context.Context, query string, hits []vectorstore.Hit) ([]RankedHit, error) {
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Text
	}

	scores, err := e.reranker.Rerank(ctx, query, passages)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(hits) {
		return nil, fmt.Errorf("reranker returned %d scores for %d passages", len(scores), len(hits))
	}

	ranked := make([]RankedHit, len(hits))
	for i, h := range hits {
		ranked[i] = RankedHit{Hit: h, RetrievalRank: i + 1, RerankScore: scores[i]}
	}
	slices.SortStableFunc(ranked, func(a, b RankedHit) int {
		return cmp.Compare(b.RerankScore, a.RerankScore)
	})
	return ranked, nil
}

func (e *Engine) generate(ctx context.Context, userPrompt string) (string, error) {
	if e.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.GenerationTimeout)
		defer cancel()
	}

	raw, err := e.generator.Generate(ctx, SystemPrompt, userPrompt)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return raw, fmt.Errorf("generation timed out after %s: %w", e.opts.GenerationTimeout, err)
	}
	return raw, err
}

// validate maps the generator's answer onto a terminal outcome.
func (e *Engine) validate(ctx context.Context, gen GeneratedAnswer, blocks []string, best RankedHit) Outcome {
	logger := contextutil.LoggerFromContext(ctx)
	answer := strings.TrimSpace(gen.Answer)

	switch {
	case answer == OutOfScopeMessage:
		logger.InfoContext(ctx, "generator refused as out of scope")
		return outOfScope(ReasonModelRefused)
	case answer == NotSpecifiedMessage:
		return notSpecified(ReasonModelRefused)
	case !gen.Answerable || answer == "":
		return notSpecified(ReasonNotAnswerable)
	}

	if e.opts.RequireEvidenceMatch && !EvidenceMatches(blocks, gen.Evidence) {
		logger.WarnContext(ctx, "generated evidence not found in context", "evidence_count", len(gen.Evidence))
		return notSpecified(ReasonEvidenceMismatch)
	}
	if e.opts.StrictEvidence && !hasEvidence(gen.Evidence) {
		logger.WarnContext(ctx, "answerable claim cites no evidence")
		return notSpecified(ReasonEvidenceMismatch)
	}

	logger.InfoContext(ctx, "query answered", "chunk_id", best.Meta.ChunkID, "answer_length", len(answer))
	return Outcome{Kind: KindAnswered, Answer: answer, Sources: formatSource(best.Meta)}
}

func debugChunks(ranked []RankedHit) []RetrievedChunk {
	chunks := make([]RetrievedChunk, 0, len(ranked))
	for i, h := range ranked {
		chunks = append(chunks, RetrievedChunk{
			ChunkID:       h.Meta.ChunkID,
			DocName:       h.Meta.DocName,
			Item:          h.Meta.Item,
			Page:          h.Meta.Page(),
			ScoreVector:   float64(h.Score),
			ScoreRerank:   h.RerankScore,
			RetrievalRank: h.RetrievalRank,
			Rank:          i + 1,
			Text:          h.Text,
		})
	}
	return chunks
}
