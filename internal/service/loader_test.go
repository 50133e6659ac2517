package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"sec-rag/internal/config"
	"sec-rag/internal/rag"
	"sec-rag/internal/vectorstore"
	"sec-rag/internal/vectorstore/mocks"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLMBaseURL:         "http://127.0.0.1:1",
		LLMModelName:       "test-llm",
		LLMMaxTokens:       64,
		EmbeddingBaseURL:   "http://127.0.0.1:1",
		EmbeddingModelName: "test-embed",
		EmbedBatchSize:     8,
		IndexDir:           filepath.Join(t.TempDir(), "index"),
		TopK:               5,
		RerankMinScore:     0.15,
		MaxContextChars:    9000,
		GenerationTimeout:  time.Second,
		VectorBackend:      config.BackendFlat,
	}
}

func saveIndex(t *testing.T, dir string) {
	t.Helper()
	store, err := vectorstore.Build(
		[][]float32{{1, 0}, {0, 1}},
		[]string{"Total net sales were $391,035 million.", "Tesla revenue."},
		[]vectorstore.ChunkMeta{
			{ChunkID: "Apple 10-K::p30::c0", DocName: "Apple 10-K", Item: "Item 8", PagePDF: 30},
			{ChunkID: "Tesla 10-K::p40::c0", DocName: "Tesla 10-K", Item: "Item 7", PagePDF: 40},
		},
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	store.Info.EmbedModel = "test-embed"
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestNewEngineLoader_FlatIndex(t *testing.T) {
	cfg := testConfig(t)
	saveIndex(t, cfg.IndexDir)

	engine, err := NewEngineLoader(cfg)(context.Background())
	if err != nil {
		t.Fatalf("loader error = %v", err)
	}

	// The scope gate refuses before any model call, so no server is needed.
	out := engine.Answer(context.Background(), "What is Apple's stock price forecast for 2025?")
	if out.Kind != rag.KindOutOfScope {
		t.Errorf("Answer().Kind = %v, want out_of_scope", out.Kind)
	}
}

func TestNewEngineLoader_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, cfg *config.Config)
	}{
		{
			name:  "missing index",
			setup: func(t *testing.T, cfg *config.Config) {},
		},
		{
			name: "missing scope policy",
			setup: func(t *testing.T, cfg *config.Config) {
				saveIndex(t, cfg.IndexDir)
				cfg.ScopePolicyPath = filepath.Join(t.TempDir(), "missing.toml")
			},
		},
		{
			name: "invalid scope policy",
			setup: func(t *testing.T, cfg *config.Config) {
				saveIndex(t, cfg.IndexDir)
				path := filepath.Join(t.TempDir(), "policy.toml")
				if err := os.WriteFile(path, []byte("entities = 3"), 0o644); err != nil {
					t.Fatal(err)
				}
				cfg.ScopePolicyPath = path
			},
		},
		{
			name: "preload failure",
			setup: func(t *testing.T, cfg *config.Config) {
				saveIndex(t, cfg.IndexDir)
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "router offline", http.StatusServiceUnavailable)
				}))
				t.Cleanup(srv.Close)
				cfg.LLMBaseURL = srv.URL
				cfg.PreloadModels = []string{"test-llm"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.setup(t, cfg)

			if _, err := NewEngineLoader(cfg)(context.Background()); err == nil {
				t.Error("loader expected error")
			}
		})
	}
}

func TestNewEngineLoader_Preload(t *testing.T) {
	cfg := testConfig(t)
	saveIndex(t, cfg.IndexDir)

	var loaded []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"id":"test-llm","in_cache":true}]}`))
			return
		}
		loaded = append(loaded, r.URL.Path)
		http.Error(w, "unexpected", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg.LLMBaseURL = srv.URL
	cfg.PreloadModels = []string{"test-llm"}

	if _, err := NewEngineLoader(cfg)(context.Background()); err != nil {
		t.Fatalf("loader error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("cached model triggered load calls: %v", loaded)
	}
}

func TestCheckPointCount(t *testing.T) {
	indexDir := t.TempDir()
	saveIndex(t, indexDir)

	tests := []struct {
		name    string
		points  int
		lenErr  error
		wantErr error
	}{
		{name: "matches manifest", points: 2},
		{name: "stale points left", points: 5, wantErr: vectorstore.ErrMisaligned},
		{name: "empty collection", points: 0, wantErr: vectorstore.ErrMisaligned},
		{name: "count fails", lenErr: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			retriever := mocks.NewMockRetriever(ctrl)
			retriever.EXPECT().Len(gomock.Any()).Return(tt.points, tt.lenErr)

			n, err := checkPointCount(context.Background(), retriever, indexDir)
			switch {
			case tt.lenErr != nil:
				if !errors.Is(err, tt.lenErr) {
					t.Errorf("checkPointCount() error = %v, want %v", err, tt.lenErr)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("checkPointCount() error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil || n != 2 {
					t.Errorf("checkPointCount() = %d, %v, want 2, nil", n, err)
				}
			}
		})
	}
}

func TestCheckPointCount_NoManifest(t *testing.T) {
	ctrl := gomock.NewController(t)
	retriever := mocks.NewMockRetriever(ctrl)

	if _, err := checkPointCount(context.Background(), retriever, t.TempDir()); err == nil {
		t.Error("checkPointCount() without a manifest should fail")
	}
}
