package indexer

import "sec-rag/internal/vectorstore"

// CoverItem labels pages that precede the first item heading.
const CoverItem = "Cover Page"

// Page is one cleaned page of a source document.
type Page struct {
	DocName    string
	Company    string
	SourcePath string
	// PagePDF is the 1-indexed physical page number.
	PagePDF int
	// PageReport is the printed page number from the footer, if any.
	PageReport *int
	// Item is the current section label (e.g. "Item 7"). It carries over
	// from earlier pages until a new heading appears.
	Item      string
	ItemTitle string
	Text      string
}

// Chunk is a token-bounded slice of one page.
type Chunk struct {
	ID   string
	Text string
	Meta vectorstore.ChunkMeta
}

// Config holds the chunking and embedding parameters of an index build.
type Config struct {
	ChunkTokens    int
	ChunkOverlap   int
	MinChunkChars  int
	EmbedBatchSize int
	// EmbedModel is recorded in the manifest.
	EmbedModel string
}

// DefaultConfig returns the standard chunking parameters.
func DefaultConfig() Config {
	return Config{
		ChunkTokens:    900,
		ChunkOverlap:   120,
		MinChunkChars:  200,
		EmbedBatchSize: 64,
	}
}
