package main

import (
	"os"
	"os/signal"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/transport/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:          "mcp",
	Short:        "Serve recall_context and extract_memories over MCP stdio",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		a, err := newApp(ctx, appOptions{withOracle: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		return mcp.NewServer(a.pipeline, cmd.InOrStdin(), cmd.OutOrStdout()).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
