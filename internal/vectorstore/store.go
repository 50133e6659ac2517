package vectorstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
)

// BuildInfo describes how an index was produced. It is persisted in the manifest.
type BuildInfo struct {
	EmbedModel     string          `json:"embed_model,omitempty"`
	ChunkerVersion string          `json:"chunker_version,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
	Stats          json.RawMessage `json:"stats,omitempty"`
}

// Scored is an (ordinal, score) search result.
type Scored struct {
	Ordinal int
	Score   float32
}

// Store is an exact inner-product index over N x D vectors with parallel
// text and metadata tables. Ordinal i of the vector table corresponds to
// texts[i] and metas[i]. A Store is read-only after Build or Load and safe
// for concurrent readers.
type Store struct {
	dim   int
	vecs  []float32 // row-major, len == count*dim
	texts []string
	metas []ChunkMeta
	Info  BuildInfo
}

// Build creates a store from vectors, texts and metas, which must be the same length.
func Build(vectors [][]float32, texts []string, metas []ChunkMeta) (*Store, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no vectors", ErrShape)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimension vectors", ErrShape)
	}
	if len(texts) != len(vectors) || len(metas) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors, %d texts, %d metas", ErrMisaligned, len(vectors), len(texts), len(metas))
	}

	flat := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has dimension %d, expected %d", ErrShape, i, len(v), dim)
		}
		flat = append(flat, v...)
	}

	return &Store{
		dim:   dim,
		vecs:  flat,
		texts: slices.Clone(texts),
		metas: slices.Clone(metas),
	}, nil
}

// Dim returns the vector dimensionality.
func (s *Store) Dim() int {
	return s.dim
}

// Count returns the number of entries.
func (s *Store) Count() int {
	return len(s.texts)
}

// Entry returns the text and metadata stored at ordinal i.
func (s *Store) Entry(i int) (string, ChunkMeta, bool) {
	if i < 0 || i >= len(s.texts) {
		return "", ChunkMeta{}, false
	}
	return s.texts[i], s.metas[i], true
}

// Vector returns a copy of the vector stored at ordinal i.
func (s *Store) Vector(i int) []float32 {
	if i < 0 || i >= s.Count() {
		return nil
	}
	return slices.Clone(s.vecs[i*s.dim : (i+1)*s.dim])
}

// Search returns up to k (ordinal, score) pairs sorted by descending inner
// product. Ties keep ordinal order. Entries whose score is not a number are
// treated as no match and never returned.
func (s *Store) Search(query []float32, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), s.dim)
	}

	scored := make([]Scored, 0, s.Count())
	for i := 0; i < s.Count(); i++ {
		row := s.vecs[i*s.dim : (i+1)*s.dim]
		var dot float64
		for j, q := range query {
			dot += float64(q) * float64(row[j])
		}
		if math.IsNaN(dot) {
			continue
		}
		scored = append(scored, Scored{Ordinal: i, Score: float32(dot)})
	}

	slices.SortStableFunc(scored, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Retrieve implements Retriever.
func (s *Store) Retrieve(_ context.Context, query []float32, k int) ([]Hit, error) {
	scored, err := s.Search(query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(scored))
	for _, sc := range scored {
		text, meta, ok := s.Entry(sc.Ordinal)
		if !ok {
			continue
		}
		hits = append(hits, Hit{Ordinal: sc.Ordinal, Score: sc.Score, Text: text, Meta: meta})
	}
	return hits, nil
}

// Len implements Retriever.
func (s *Store) Len(context.Context) (int, error) {
	return s.Count(), nil
}

var _ Retriever = (*Store)(nil)
