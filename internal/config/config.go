package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector backends accepted by VECTOR_BACKEND.
const (
	BackendFlat   = "flat"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string
	LLMMaxTokens int

	// PreloadModels are loaded on the LLM server during warm-up.
	PreloadModels []string

	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbedBatchSize     int

	// RerankBaseURL is optional. When empty the lexical reranker is used.
	RerankBaseURL   string
	RerankModelName string

	IndexDir string
	DataDir  string

	TopK              int
	RerankMinScore    float64
	MaxContextChars   int
	StrictEvidence    bool
	GenerationTimeout time.Duration

	ChunkTokens   int
	ChunkOverlap  int
	MinChunkChars int

	// ScopePolicyPath points to a TOML scope policy. Empty means the built-in policy.
	ScopePolicyPath string

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string

	DBPath    string
	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent, it is loaded first;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "microsoft/Phi-3-mini-4k-instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "BAAI/bge-small-en-v1.5"),
		RerankBaseURL:      getEnv("RERANK_BASE_URL", ""),
		RerankModelName:    getEnv("RERANK_MODEL_NAME", "BAAI/bge-reranker-base"),
		IndexDir:           getEnv("RAG_INDEX_DIR", "index"),
		DataDir:            getEnv("RAG_DATA_DIR", "data"),
		ScopePolicyPath:    getEnv("SCOPE_POLICY_PATH", ""),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", BackendFlat)),
		QdrantURL:          getEnv("QDRANT_URL", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "sec_filings"),
		DBPath:             getEnv("DB_PATH", "./data/sec-rag.db"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	for _, name := range strings.Split(getEnv("PRELOAD_MODELS", ""), ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.PreloadModels = append(cfg.PreloadModels, name)
		}
	}

	ints := []struct {
		key   string
		def   int
		dst   *int
		floor int
	}{
		{"LLM_MAX_TOKENS", 256, &cfg.LLMMaxTokens, 1},
		{"EMBED_BATCH_SIZE", 64, &cfg.EmbedBatchSize, 1},
		{"TOP_K", 5, &cfg.TopK, 1},
		{"MAX_CONTEXT_CHARS", 9000, &cfg.MaxContextChars, 1},
		{"CHUNK_TOKENS", 900, &cfg.ChunkTokens, 1},
		{"CHUNK_OVERLAP", 120, &cfg.ChunkOverlap, 0},
		{"MIN_CHUNK_CHARS", 200, &cfg.MinChunkChars, 0},
	}
	for _, v := range ints {
		n, err := getEnvInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		if n < v.floor {
			return nil, fmt.Errorf("%s must be at least %d", v.key, v.floor)
		}
		*v.dst = n
	}
	if cfg.ChunkOverlap >= cfg.ChunkTokens {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_TOKENS (%d)", cfg.ChunkOverlap, cfg.ChunkTokens)
	}

	minScore, err := strconv.ParseFloat(getEnv("RERANK_MIN_SCORE", "0.15"), 64)
	if err != nil {
		return nil, fmt.Errorf("RERANK_MIN_SCORE must be a valid number: %w", err)
	}
	cfg.RerankMinScore = minScore

	strict, err := strconv.ParseBool(getEnv("STRICT_EVIDENCE", "false"))
	if err != nil {
		return nil, fmt.Errorf("STRICT_EVIDENCE must be a boolean: %w", err)
	}
	cfg.StrictEvidence = strict

	timeout, err := time.ParseDuration(getEnv("GENERATION_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("GENERATION_TIMEOUT must be a valid duration: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT must be greater than 0")
	}
	cfg.GenerationTimeout = timeout

	switch cfg.VectorBackend {
	case BackendFlat:
	case BackendQdrant:
		if cfg.QdrantURL == "" {
			return nil, fmt.Errorf("QDRANT_URL is required when VECTOR_BACKEND=qdrant")
		}
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendFlat, BackendQdrant, cfg.VectorBackend)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
