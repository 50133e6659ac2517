package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collaborators.go -package=mocks sec-rag/internal/rag Embedder,Reranker,Generator

import "context"

// Embedder maps texts to fixed-dimension vectors, one per input.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker scores each (query, passage) pair. Scores are aligned with passages.
type Reranker interface {
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Generator returns raw model text for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
