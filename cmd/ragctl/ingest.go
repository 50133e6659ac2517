package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sec-rag/internal/config"
	"sec-rag/internal/contextutil"
	"sec-rag/internal/indexer"
	"sec-rag/internal/llm"
	"sec-rag/internal/storage"
	"sec-rag/internal/vectorstore"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector index from the filings directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := contextutil.LoggerFromContext(ctx)

		dataDir, _ := cmd.Flags().GetString("data-dir")
		indexDir, _ := cmd.Flags().GetString("index-dir")
		if dataDir == "" {
			dataDir = cfg.DataDir
		}
		if indexDir == "" {
			indexDir = cfg.IndexDir
		}

		tokenizer, err := indexer.NewTiktokenTokenizer("cl100k_base")
		if err != nil {
			return err
		}

		var mirror indexer.Mirror
		if cfg.VectorBackend == config.BackendQdrant {
			qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
			if err != nil {
				return err
			}
			defer func() {
				_ = qs.Close()
			}()
			mirror = qs
		}

		pipeline, err := indexer.NewPipeline(
			tokenizer,
			llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbedBatchSize),
			mirror,
			indexer.Config{
				ChunkTokens:    cfg.ChunkTokens,
				ChunkOverlap:   cfg.ChunkOverlap,
				MinChunkChars:  cfg.MinChunkChars,
				EmbedBatchSize: cfg.EmbedBatchSize,
				EmbedModel:     cfg.EmbeddingModelName,
			},
		)
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "building index", "data_dir", dataDir, "index_dir", indexDir, "backend", cfg.VectorBackend)
		stats, err := pipeline.BuildIndex(ctx, dataDir, indexDir)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()
		build, err := storage.NewBuildRepo(db).Record(ctx, storage.BuildRecord{
			IndexDir:       indexDir,
			IndexVersion:   stats.IndexVersion,
			ChunkerVersion: stats.ChunkerVersion,
			EmbedModel:     cfg.EmbeddingModelName,
			Docs:           stats.DocsProcessed,
			Chunks:         stats.ChunksEmbedded,
		})
		if err != nil {
			// The index itself is on disk; a missing history row is not fatal.
			logger.WarnContext(ctx, "failed to record build", "error", err)
		} else {
			logger.InfoContext(ctx, "build recorded", "build_id", build.ID)
		}

		return printJSON(cmd, stats)
	},
}

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List recorded index builds, newest first",
	Long: `List recorded index builds, newest first. With --index-dir only the
latest build of that directory is shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		repo := storage.NewBuildRepo(db)
		var builds []storage.BuildRecord
		if indexDir, _ := cmd.Flags().GetString("index-dir"); indexDir != "" {
			latest, err := repo.Latest(cmd.Context(), indexDir)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no build recorded for %s", indexDir)
			}
			if err != nil {
				return err
			}
			builds = append(builds, latest)
		} else {
			all, err := repo.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			builds = all
		}

		out := cmd.OutOrStdout()
		for _, b := range builds {
			_, _ = fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\tdocs=%d chunks=%d\n",
				b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.IndexDir, b.IndexVersion, b.EmbedModel, b.Docs, b.Chunks)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(buildsCmd)

	ingestCmd.Flags().String("data-dir", "", "Directory containing the filings (default $RAG_DATA_DIR)")
	ingestCmd.Flags().String("index-dir", "", "Directory to write the index to (default $RAG_INDEX_DIR)")

	buildsCmd.Flags().String("index-dir", "", "Show only the latest build of this index directory")
}
