package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var envVars = []string{
	"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL", "LLM_MAX_TOKENS",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "EMBED_BATCH_SIZE",
	"RERANK_BASE_URL", "RERANK_MODEL_NAME",
	"RAG_INDEX_DIR", "RAG_DATA_DIR", "TOP_K", "RERANK_MIN_SCORE", "MAX_CONTEXT_CHARS",
	"STRICT_EVIDENCE", "GENERATION_TIMEOUT", "CHUNK_TOKENS", "CHUNK_OVERLAP", "MIN_CHUNK_CHARS",
	"SCOPE_POLICY_PATH", "VECTOR_BACKEND", "QDRANT_URL", "QDRANT_COLLECTION",
	"DB_PATH", "API_PORT", "LOG_LEVEL", "LOG_FORMAT", "PRELOAD_MODELS",
}

func TestLoad(t *testing.T) {
	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:     "defaults",
			setupEnv: func(t *testing.T) {},
			wantErr:  false,
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMBaseURL == "http://localhost:8080" &&
					cfg.LLMMaxTokens == 256 &&
					cfg.EmbeddingModelName == "BAAI/bge-small-en-v1.5" &&
					cfg.EmbedBatchSize == 64 &&
					cfg.RerankBaseURL == "" &&
					len(cfg.PreloadModels) == 0 &&
					cfg.IndexDir == "index" &&
					cfg.TopK == 5 &&
					cfg.RerankMinScore == 0.15 &&
					cfg.MaxContextChars == 9000 &&
					!cfg.StrictEvidence &&
					cfg.GenerationTimeout == 60*time.Second &&
					cfg.ChunkTokens == 900 &&
					cfg.ChunkOverlap == 120 &&
					cfg.MinChunkChars == 200 &&
					cfg.VectorBackend == BackendFlat &&
					cfg.APIPort == "9000" &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text"
			},
		},
		{
			name: "custom values",
			setupEnv: func(t *testing.T) {
				setEnv("TOP_K", "8")
				setEnv("RERANK_MIN_SCORE", "0.3")
				setEnv("STRICT_EVIDENCE", "true")
				setEnv("GENERATION_TIMEOUT", "5s")
				setEnv("LOG_LEVEL", "debug")
				setEnv("LOG_FORMAT", "JSON")
				setEnv("DB_PATH", filepath.Join(t.TempDir(), "custom", "db.db"))
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.TopK == 8 &&
					cfg.RerankMinScore == 0.3 &&
					cfg.StrictEvidence &&
					cfg.GenerationTimeout == 5*time.Second &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json" &&
					filepath.Base(cfg.DBPath) == "db.db"
			},
		},
		{
			name: "preload models list",
			setupEnv: func(t *testing.T) {
				setEnv("PRELOAD_MODELS", " phi-3 , ,bge-small")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return len(cfg.PreloadModels) == 2 &&
					cfg.PreloadModels[0] == "phi-3" &&
					cfg.PreloadModels[1] == "bge-small"
			},
		},
		{
			name: "qdrant backend with url",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_BACKEND", "qdrant")
				setEnv("QDRANT_URL", "http://localhost:6333")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorBackend == BackendQdrant && cfg.QdrantCollection == "sec_filings"
			},
		},
		{
			name: "qdrant backend without url",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_BACKEND", "qdrant")
			},
			wantErr: true,
		},
		{
			name: "unknown backend",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_BACKEND", "faiss")
			},
			wantErr: true,
		},
		{
			name: "invalid TOP_K",
			setupEnv: func(t *testing.T) {
				setEnv("TOP_K", "many")
			},
			wantErr: true,
		},
		{
			name: "zero TOP_K",
			setupEnv: func(t *testing.T) {
				setEnv("TOP_K", "0")
			},
			wantErr: true,
		},
		{
			name: "overlap not smaller than chunk size",
			setupEnv: func(t *testing.T) {
				setEnv("CHUNK_TOKENS", "100")
				setEnv("CHUNK_OVERLAP", "100")
			},
			wantErr: true,
		},
		{
			name: "invalid RERANK_MIN_SCORE",
			setupEnv: func(t *testing.T) {
				setEnv("RERANK_MIN_SCORE", "high")
			},
			wantErr: true,
		},
		{
			name: "invalid GENERATION_TIMEOUT",
			setupEnv: func(t *testing.T) {
				setEnv("GENERATION_TIMEOUT", "soon")
			},
			wantErr: true,
		},
		{
			name: "invalid LOG_FORMAT",
			setupEnv: func(t *testing.T) {
				setEnv("LOG_FORMAT", "xml")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Change to a temp directory without .env file to avoid loading it
			tmpDir := t.TempDir()
			originalWd, _ := os.Getwd()
			_ = os.Chdir(tmpDir)
			defer func() {
				_ = os.Chdir(originalWd)
			}()

			for _, key := range envVars {
				unsetEnv(key)
			}

			tt.setupEnv(t)

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		cfg := &Config{LogLevel: slog.LevelWarn, LogFormat: format}
		logger := cfg.NewLogger()
		if logger == nil {
			t.Fatalf("NewLogger() returned nil for format %s", format)
		}
		if logger.Enabled(t.Context(), slog.LevelInfo) {
			t.Errorf("NewLogger(%s) should not enable info when level is warn", format)
		}
	}
}
