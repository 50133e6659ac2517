package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
)

// IngestStats summarizes one index build.
type IngestStats struct {
	// DocsProcessed is the number of source documents read.
	DocsProcessed int `json:"docs_processed"`
	// PagesProcessed counts pages with non-empty cleaned text.
	PagesProcessed int `json:"pages_processed"`
	// DocsWith0Chunks is the number of documents that produced no chunks.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// ChunksEmbedded is the number of chunks written to the index.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ChunksDropped counts token windows shorter than the minimum chunk length.
	ChunksDropped int `json:"chunks_dropped"`
	// ChunkTokenStats describes token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	ChunkerVersion  string          `json:"chunker_version"`
	// IndexVersion hashes the chunker version, embedding model and chunking params.
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// IndexVersion returns a short stable hash of the build parameters.
func IndexVersion(cfg Config) string {
	input := fmt.Sprintf("%s|%s|tokens=%d|overlap=%d|min_chars=%d",
		ChunkerVersion, cfg.EmbedModel, cfg.ChunkTokens, cfg.ChunkOverlap, cfg.MinChunkChars)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := slices.Clone(tokenCounts)
	slices.Sort(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95Index = max(0, min(p95Index, len(sorted)-1))

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
