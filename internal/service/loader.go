package service

import (
	"context"
	"fmt"

	"sec-rag/internal/config"
	"sec-rag/internal/contextutil"
	"sec-rag/internal/llm"
	"sec-rag/internal/rag"
	"sec-rag/internal/scope"
	"sec-rag/internal/vectorstore"
)

// NewEngineLoader returns a loader that builds the engine from cfg: the
// scope policy, the vector index, and the model clients.
func NewEngineLoader(cfg *config.Config) EngineLoader {
	return func(ctx context.Context) (Answerer, error) {
		logger := contextutil.LoggerFromContext(ctx)

		policy := scope.DefaultPolicy()
		if cfg.ScopePolicyPath != "" {
			p, err := scope.LoadPolicy(cfg.ScopePolicyPath)
			if err != nil {
				return nil, err
			}
			policy = p
		}

		retriever, err := openRetriever(ctx, cfg)
		if err != nil {
			return nil, err
		}

		if len(cfg.PreloadModels) > 0 {
			loader := llm.NewModelLoader(cfg.LLMBaseURL)
			for _, name := range cfg.PreloadModels {
				if err := loader.LoadModel(ctx, name); err != nil {
					return nil, WrapError(err, fmt.Sprintf("failed to preload model %s", name))
				}
				logger.InfoContext(ctx, "model preloaded", "model", name)
			}
		}

		var reranker rag.Reranker
		if cfg.RerankBaseURL != "" {
			reranker = llm.NewRerankClient(cfg.RerankBaseURL, cfg.LLMAPIKey, cfg.RerankModelName)
		} else {
			logger.InfoContext(ctx, "no rerank service configured, using lexical reranker")
		}

		opts := rag.DefaultOptions()
		opts.TopK = cfg.TopK
		opts.RerankMinScore = cfg.RerankMinScore
		opts.MaxContextChars = cfg.MaxContextChars
		opts.StrictEvidence = cfg.StrictEvidence
		opts.GenerationTimeout = cfg.GenerationTimeout

		return rag.NewEngine(
			scope.NewGate(policy),
			retriever,
			llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbedBatchSize),
			reranker,
			llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMMaxTokens),
			opts,
		), nil
	}
}

func openRetriever(ctx context.Context, cfg *config.Config) (vectorstore.Retriever, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if cfg.VectorBackend == config.BackendQdrant {
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return nil, err
		}
		n, err := checkPointCount(ctx, store, cfg.IndexDir)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.InfoContext(ctx, "qdrant index opened", "collection", cfg.QdrantCollection, "points", n)
		return store, nil
	}

	store, err := vectorstore.Load(cfg.IndexDir)
	if err != nil {
		return nil, WrapError(err, fmt.Sprintf("failed to load index from %s", cfg.IndexDir))
	}
	logger.InfoContext(ctx, "index loaded",
		"dir", cfg.IndexDir,
		"chunks", store.Count(),
		"dim", store.Dim(),
		"embed_model", store.Info.EmbedModel,
	)
	if store.Info.EmbedModel != "" && store.Info.EmbedModel != cfg.EmbeddingModelName {
		logger.WarnContext(ctx, "index was built with a different embedding model",
			"index_model", store.Info.EmbedModel, "configured_model", cfg.EmbeddingModelName)
	}
	return store, nil
}

// checkPointCount requires a remote backend to hold exactly as many points as
// the manifest of the flat index it was mirrored from.
func checkPointCount(ctx context.Context, r vectorstore.Retriever, indexDir string) (int, error) {
	manifest, err := vectorstore.ReadManifest(indexDir)
	if err != nil {
		return 0, WrapError(err, fmt.Sprintf("failed to read manifest from %s", indexDir))
	}
	n, err := r.Len(ctx)
	if err != nil {
		return 0, WrapError(err, "failed to count points")
	}
	if n != manifest.Count {
		return 0, fmt.Errorf("%w: backend holds %d points, manifest says %d", vectorstore.ErrMisaligned, n, manifest.Count)
	}
	return n, nil
}
