package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/vectorstore"
)

// ErrDuplicateChunkID is returned when two source files map to the same
// document name and therefore to the same chunk ids.
var ErrDuplicateChunkID = errors.New("duplicate chunk id")

// Embedder maps texts to vectors, one per input.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Mirror receives a copy of every built index, e.g. a Qdrant collection.
type Mirror interface {
	Sync(ctx context.Context, store *vectorstore.Store) error
}

// Pipeline builds a persisted vector index from a directory of filings.
type Pipeline struct {
	extractor *Extractor
	chunker   *TokenChunker
	tokenizer Tokenizer
	embedder  Embedder
	mirror    Mirror
	cfg       Config
	now       func() time.Time
}

// NewPipeline creates a new indexing pipeline. mirror may be nil.
func NewPipeline(tokenizer Tokenizer, embedder Embedder, mirror Mirror, cfg Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	chunker, err := NewTokenChunker(tokenizer, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultConfig().EmbedBatchSize
	}
	return &Pipeline{
		extractor: NewExtractor(),
		chunker:   chunker,
		tokenizer: tokenizer,
		embedder:  embedder,
		mirror:    mirror,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// BuildIndex reads every document under sourceDir, chunks and embeds it,
// and writes the index files to outputDir. The build fails as a whole;
// nothing is written unless every chunk was embedded.
func (p *Pipeline) BuildIndex(ctx context.Context, sourceDir, outputDir string) (*IngestStats, error) {
	logger := contextutil.LoggerFromContext(ctx)
	started := p.now()

	paths, err := DiscoverDocuments(sourceDir)
	if err != nil {
		return nil, err
	}

	stats := &IngestStats{
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   IndexVersion(p.cfg),
	}

	var chunks []Chunk
	origin := make(map[string]string)
	for _, path := range paths {
		docChunks := 0
		for page, err := range p.extractor.Pages(path) {
			if err != nil {
				return nil, err
			}
			stats.PagesProcessed++
			pageChunks, dropped := p.chunker.ChunkPage(page)
			for _, c := range pageChunks {
				if prev, ok := origin[c.ID]; ok {
					return nil, fmt.Errorf("%w %q: produced by %s and %s", ErrDuplicateChunkID, c.ID, prev, path)
				}
				origin[c.ID] = path
			}
			stats.ChunksDropped += dropped
			docChunks += len(pageChunks)
			chunks = append(chunks, pageChunks...)
		}
		stats.DocsProcessed++
		if docChunks == 0 {
			stats.DocsWith0Chunks++
			logger.WarnContext(ctx, "no chunks generated", "path", path)
		}
		logger.InfoContext(ctx, "document chunked", "path", path, "chunks", docChunks)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %d documents in %s", len(paths), sourceDir)
	}

	texts := make([]string, len(chunks))
	metas := make([]vectorstore.ChunkMeta, len(chunks))
	tokenCounts := make([]int, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		metas[i] = c.Meta
		tokenCounts[i] = len(p.tokenizer.Encode(c.Text))
	}

	vectors, err := p.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	store, err := vectorstore.Build(vectors, texts, metas)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	stats.ChunksEmbedded = store.Count()
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	rawStats, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stats: %w", err)
	}
	store.Info = vectorstore.BuildInfo{
		EmbedModel:     p.cfg.EmbedModel,
		ChunkerVersion: ChunkerVersion,
		CreatedAt:      p.now().UTC(),
		Stats:          rawStats,
	}

	if err := store.Save(outputDir); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	if p.mirror != nil {
		if err := p.mirror.Sync(ctx, store); err != nil {
			return nil, fmt.Errorf("failed to mirror index: %w", err)
		}
	}

	logger.InfoContext(ctx, "index built",
		"docs", stats.DocsProcessed,
		"pages", stats.PagesProcessed,
		"chunks", stats.ChunksEmbedded,
		"dropped", stats.ChunksDropped,
		"dim", store.Dim(),
		"index_version", stats.IndexVersion,
		"duration", p.now().Sub(started),
	)
	return stats, nil
}

func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.cfg.EmbedBatchSize {
		end := min(start+p.cfg.EmbedBatchSize, len(texts))
		batch, err := p.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks: %w", len(batch), end-start, vectorstore.ErrMisaligned)
		}
		vectors = append(vectors, batch...)
		logger.DebugContext(ctx, "embedded batch", "start", start, "end", end)
	}
	return vectors, nil
}
