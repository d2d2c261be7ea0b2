package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/service/memory"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/service/ui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var extractFlags struct {
	userID    string
	sessionID string
	file      string
	maxChunks int
	asJSON    bool
}

var extractCmd = &cobra.Command{
	Use:          "extract",
	Short:        "Extract memories from a transcript file",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		msgs, err := readTranscript(cmd.InOrStdin(), extractFlags.file)
		if err != nil {
			return err
		}

		a, err := newApp(ctx, appOptions{withOracle: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		sessionID := extractFlags.sessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		res, err := a.pipeline.Run(ctx, memory.RunRequest{
			UserID:    extractFlags.userID,
			SessionID: sessionID,
			Messages:  msgs,
			MaxChunks: extractFlags.maxChunks,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if extractFlags.asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printRunResult(out, sessionID, res)
		return nil
	},
}

func printRunResult(out io.Writer, sessionID string, res *memory.RunResult) {
	fmt.Fprintln(out, ui.TitleStyle.Render("Session "+sessionID))
	fmt.Fprint(out, ui.RenderStats([]ui.Stat{
		{Label: "entries", Value: len(res.Entries)},
		{Label: "candidates", Value: res.CandidateCount},
		{Label: "chunks", Value: res.ChunksTotal},
		{Label: "chunks processed", Value: res.ChunksProcessed},
		{Label: "chunks failed", Value: res.ChunksFailed, Warn: true},
	}))
	if res.Interrupted {
		fmt.Fprintln(out, ui.WarnStyle.Render("run interrupted, partial results kept"))
	}
	if res.Summary != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.RenderSummary(res.Summary))
	}
}

// readTranscript reads path, or stdin when path is "-".
func readTranscript(stdin io.Reader, path string) ([]core.Message, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return core.DecodeTranscript(data)
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractFlags.userID, "user", "u", "", "user id")
	f.StringVarP(&extractFlags.sessionID, "session", "s", "", "session id (random when empty)")
	f.StringVarP(&extractFlags.file, "file", "f", "-", "transcript JSON file, - for stdin")
	f.IntVar(&extractFlags.maxChunks, "max-chunks", 0, "extract at most this many chunks, 0 for adaptive")
	f.BoolVar(&extractFlags.asJSON, "json", false, "print the full run result as JSON")
	_ = extractCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(extractCmd)
}
