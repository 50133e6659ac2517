package main

import (
	"strings"

	"github.com/spf13/cobra"

	"sec-rag/internal/service"
	"sec-rag/internal/storage"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question against the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		svc := service.NewQAService(service.NewEngineLoader(cfg), storage.NewQueryRepo(db))
		resp, err := svc.Ask(cmd.Context(), service.AskRequest{
			Query: strings.Join(args, " "),
			Debug: debug,
		})
		if err != nil {
			return err
		}

		if debug {
			return printJSON(cmd, map[string]any{
				"answer":  resp.Answer,
				"sources": resp.Sources,
				"outcome": resp.Outcome.String(),
				"debug":   resp.Debug,
			})
		}
		return printJSON(cmd, resp.QueryResult)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Bool("debug", false, "Include retrieval and validation details")
}
