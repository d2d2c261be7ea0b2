package main

import (
	"encoding/json"
	"fmt"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/service/ui"
	"github.com/spf13/cobra"
)

var recallFlags struct {
	userID   string
	query    string
	symptoms []string
	limit    int
}

var summaryCmd = &cobra.Command{
	Use:          "summary",
	Short:        "Print the contextual summary of a user",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close(ctx)
		if err := a.ensureSchema(ctx); err != nil {
			return err
		}

		summary, err := a.pipeline.Aggregator().GenerateContextualSummary(ctx, recallFlags.userID, recallFlags.query, recallFlags.symptoms)
		if err != nil {
			return err
		}
		if summary == "" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.DescStyle.Render("no stored context for "+recallFlags.userID))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSummary(summary))
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:          "context",
	Short:        "Print the reconstructed user context as JSON",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close(ctx)
		if err := a.ensureSchema(ctx); err != nil {
			return err
		}

		uc, err := a.pipeline.Aggregator().GetUserContext(ctx, recallFlags.userID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(uc)
	},
}

var entriesCmd = &cobra.Command{
	Use:          "entries",
	Short:        "List stored memory entries of a user, newest first",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close(ctx)
		if err := a.ensureSchema(ctx); err != nil {
			return err
		}

		entries, err := a.pipeline.Aggregator().ListEntries(ctx, recallFlags.userID, recallFlags.limit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

func init() {
	for _, c := range []*cobra.Command{summaryCmd, contextCmd, entriesCmd} {
		c.Flags().StringVarP(&recallFlags.userID, "user", "u", "", "user id")
		_ = c.MarkFlagRequired("user")
		rootCmd.AddCommand(c)
	}
	summaryCmd.Flags().StringVarP(&recallFlags.query, "query", "q", "", "focus recall on this question (semantic store)")
	summaryCmd.Flags().StringSliceVarP(&recallFlags.symptoms, "symptoms", "s", nil, "related symptoms to widen the semantic search")
	entriesCmd.Flags().IntVarP(&recallFlags.limit, "limit", "n", 20, "maximum entries, 0 for all")
}
