package main

import (
	"context"

	"github.com/spf13/cobra"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/eval"
	"sec-rag/internal/rag"
	"sec-rag/internal/service"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Answer a question set and write the predictions file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := contextutil.LoggerFromContext(ctx)

		questionsPath, _ := cmd.Flags().GetString("questions")
		outPath, _ := cmd.Flags().GetString("out")
		indexDir, _ := cmd.Flags().GetString("index-dir")
		if indexDir != "" {
			cfg.IndexDir = indexDir
		}

		questions, err := eval.LoadQuestions(questionsPath)
		if err != nil {
			return err
		}

		engine, err := service.NewEngineLoader(cfg)(ctx)
		if err != nil {
			return err
		}

		answer := func(ctx context.Context, q string) rag.QueryResult {
			return engine.Answer(ctx, q).Result()
		}
		predictions, err := eval.Run(ctx, answer, questions)
		if err != nil {
			return err
		}
		if err := eval.WritePredictions(outPath, predictions); err != nil {
			return err
		}

		logger.InfoContext(ctx, "predictions written", "path", outPath, "questions", len(predictions))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().String("questions", "", "JSON file with [{question_id, question}]")
	evalCmd.Flags().String("out", "outputs/predictions.json", "Path of the predictions file")
	evalCmd.Flags().String("index-dir", "", "Index directory (default $RAG_INDEX_DIR)")
	_ = evalCmd.MarkFlagRequired("questions")
}
