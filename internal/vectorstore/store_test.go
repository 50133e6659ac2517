package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

func testEntries(n int) ([]string, []ChunkMeta) {
	texts := make([]string, n)
	metas := make([]ChunkMeta, n)
	for i := range n {
		texts[i] = fmt.Sprintf("chunk %d", i)
		metas[i] = ChunkMeta{ChunkID: fmt.Sprintf("Doc::p%d::c0", i+1), DocName: "Doc", Item: "Item 1", PagePDF: i + 1}
	}
	return texts, metas
}

func TestBuild_Validation(t *testing.T) {
	texts, metas := testEntries(2)
	tests := []struct {
		name    string
		vectors [][]float32
		texts   []string
		metas   []ChunkMeta
		wantErr error
	}{
		{name: "no vectors", vectors: nil, texts: nil, metas: nil, wantErr: ErrShape},
		{name: "ragged rows", vectors: [][]float32{{1, 0}, {1}}, texts: texts, metas: metas, wantErr: ErrShape},
		{name: "fewer texts", vectors: [][]float32{{1, 0}, {0, 1}}, texts: texts[:1], metas: metas, wantErr: ErrMisaligned},
		{name: "fewer metas", vectors: [][]float32{{1, 0}, {0, 1}}, texts: texts, metas: metas[:1], wantErr: ErrMisaligned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.vectors, tt.texts, tt.metas)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_Search(t *testing.T) {
	texts, metas := testEntries(4)
	store, err := Build([][]float32{
		{1, 0},
		{0, 1},
		{0.6, 0.8},
		{0, 1},
	}, texts, metas)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	got, err := store.Search([]float32{0, 1}, 3)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	want := []Scored{{Ordinal: 1, Score: 1}, {Ordinal: 3, Score: 1}, {Ordinal: 2, Score: 0.8}}
	if len(got) != len(want) {
		t.Fatalf("Search() returned %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Ordinal != want[i].Ordinal || math.Abs(float64(got[i].Score-want[i].Score)) > 1e-6 {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStore_Search_KLargerThanCount(t *testing.T) {
	texts, metas := testEntries(2)
	store, _ := Build([][]float32{{1, 0}, {0, 1}}, texts, metas)
	got, err := store.Search([]float32{1, 1}, 10)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search() returned %d results, want 2", len(got))
	}
}

func TestStore_Search_Errors(t *testing.T) {
	texts, metas := testEntries(1)
	store, _ := Build([][]float32{{1, 0}}, texts, metas)
	if _, err := store.Search([]float32{1, 0}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Error("Search() with wrong dimension should return error")
	}
}

func TestStore_Search_SkipsNaN(t *testing.T) {
	texts, metas := testEntries(2)
	store, _ := Build([][]float32{{float32(math.NaN()), 0}, {1, 0}}, texts, metas)
	got, err := store.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Ordinal != 1 {
		t.Errorf("Search() = %+v, want only ordinal 1", got)
	}
}

func TestStore_Retrieve(t *testing.T) {
	texts, metas := testEntries(3)
	store, _ := Build([][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}, texts, metas)

	hits, err := store.Retrieve(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Retrieve() unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Retrieve() returned %d hits, want 2", len(hits))
	}
	if hits[0].Text != "chunk 0" || hits[0].Meta.ChunkID != "Doc::p1::c0" {
		t.Errorf("first hit = %+v", hits[0])
	}
	if hits[1].Ordinal != 2 {
		t.Errorf("second hit ordinal = %d, want 2", hits[1].Ordinal)
	}

	n, err := store.Len(context.Background())
	if err != nil || n != 3 {
		t.Errorf("Len() = %d, %v; want 3, nil", n, err)
	}
}

func TestChunkMeta_Page(t *testing.T) {
	printed := 28
	zero := 0
	tests := []struct {
		name string
		meta ChunkMeta
		want int
	}{
		{name: "printed page wins", meta: ChunkMeta{PagePDF: 30, PageReport: &printed}, want: 28},
		{name: "falls back to physical", meta: ChunkMeta{PagePDF: 30}, want: 30},
		{name: "zero printed page ignored", meta: ChunkMeta{PagePDF: 4, PageReport: &zero}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.Page(); got != tt.want {
				t.Errorf("Page() = %d, want %d", got, tt.want)
			}
		})
	}
}
