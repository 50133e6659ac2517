package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks sec-rag/internal/vectorstore Retriever

import (
	"context"
	"errors"
)

var (
	// ErrMisaligned is returned when vectors, texts and metadata disagree in count or dimension.
	ErrMisaligned = errors.New("index misaligned")
	// ErrShape is returned when input vectors do not form an N x D matrix.
	ErrShape = errors.New("vectors must form an N x D matrix")
)

// ChunkMeta is the citation metadata stored alongside every chunk.
type ChunkMeta struct {
	ChunkID   string `json:"chunk_id"`
	Company   string `json:"company"`
	DocName   string `json:"doc_name"`
	Item      string `json:"item"`
	ItemTitle string `json:"item_title"`
	// PagePDF is the 1-indexed physical page.
	PagePDF int `json:"page_pdf"`
	// PageReport is the printed page number, when a footer carried one.
	PageReport *int   `json:"page_report"`
	SourcePath string `json:"pdf_path"`
}

// Page returns the printed page when known, else the physical page.
func (m ChunkMeta) Page() int {
	if m.PageReport != nil && *m.PageReport > 0 {
		return *m.PageReport
	}
	return m.PagePDF
}

// Hit is one nearest-neighbor result with its stored text and metadata.
type Hit struct {
	// Ordinal is the position of the entry inside the index.
	Ordinal int
	// Score is the raw inner-product similarity.
	Score float32
	Text  string
	Meta  ChunkMeta
}

// Retriever is the read side of a document store.
type Retriever interface {
	// Retrieve returns up to k hits ordered by descending similarity.
	Retrieve(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Len returns the number of indexed chunks.
	Len(ctx context.Context) (int, error)
}
