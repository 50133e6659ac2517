package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"sec-rag/internal/vectorstore"
)

// ChunkerVersion identifies the chunking implementation. Bump it when
// chunk boundaries change.
const ChunkerVersion = "tok-v1"

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns a tokenizer for the named BPE encoding,
// e.g. "cl100k_base".
func NewTiktokenTokenizer(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// TokenChunker splits pages into overlapping token windows.
type TokenChunker struct {
	tokenizer Tokenizer
	size      int
	overlap   int
	minChars  int
}

// NewTokenChunker validates the window parameters.
func NewTokenChunker(tokenizer Tokenizer, cfg Config) (*TokenChunker, error) {
	if tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if cfg.ChunkTokens <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkTokens)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkTokens {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", cfg.ChunkTokens, cfg.ChunkOverlap)
	}
	return &TokenChunker{
		tokenizer: tokenizer,
		size:      cfg.ChunkTokens,
		overlap:   cfg.ChunkOverlap,
		minChars:  cfg.MinChunkChars,
	}, nil
}

// Split returns the windows of text that are at least minChars long
// after trimming, and the number of shorter windows it dropped.
func (c *TokenChunker) Split(text string) ([]string, int) {
	tokens := c.tokenizer.Encode(text)
	var pieces []string
	dropped := 0
	for start := 0; start < len(tokens); {
		end := min(start+c.size, len(tokens))
		piece := strings.TrimSpace(c.tokenizer.Decode(tokens[start:end]))
		if utf8.RuneCountInString(piece) >= c.minChars {
			pieces = append(pieces, piece)
		} else {
			dropped++
		}
		if end == len(tokens) {
			break
		}
		start = max(0, end-c.overlap)
	}
	return pieces, dropped
}

// ChunkPage splits one page and attaches its metadata. Chunk indices count
// only the kept pieces.
func (c *TokenChunker) ChunkPage(page Page) ([]Chunk, int) {
	pieces, dropped := c.Split(page.Text)
	chunks := make([]Chunk, 0, len(pieces))
	for j, piece := range pieces {
		id := fmt.Sprintf("%s::p%d::c%d", page.DocName, page.PagePDF, j)
		chunks = append(chunks, Chunk{
			ID:   id,
			Text: piece,
			Meta: vectorstore.ChunkMeta{
				ChunkID:    id,
				Company:    page.Company,
				DocName:    page.DocName,
				Item:       page.Item,
				ItemTitle:  page.ItemTitle,
				PagePDF:    page.PagePDF,
				PageReport: page.PageReport,
				SourcePath: page.SourcePath,
			},
		})
	}
	return chunks, dropped
}
