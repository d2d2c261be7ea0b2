package main

import (
	"fmt"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	redisstore "github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/storage/redis"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var submitFlags struct {
	userID    string
	sessionID string
	file      string
	maxChunks int
}

var submitCmd = &cobra.Command{
	Use:          "submit",
	Short:        "Queue a transcript for the background worker",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		msgs, err := readTranscript(cmd.InOrStdin(), submitFlags.file)
		if err != nil {
			return err
		}

		a, err := newApp(ctx, appOptions{withRedis: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		sessionID := submitFlags.sessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		job := core.Job{
			ID:        uuid.NewString(),
			UserID:    submitFlags.userID,
			SessionID: sessionID,
			Messages:  msgs,
			MaxChunks: submitFlags.maxChunks,
		}
		if err := redisstore.NewQueue(a.redis, a.extCfg.QueueName).Push(ctx, job); err != nil {
			return err
		}

		log.FromCtx(ctx).Info().Str("job_id", job.ID).Str("queue", a.extCfg.QueueName).Msg("transcript queued")
		fmt.Fprintln(cmd.OutOrStdout(), job.ID)
		return nil
	},
}

func init() {
	f := submitCmd.Flags()
	f.StringVarP(&submitFlags.userID, "user", "u", "", "user id")
	f.StringVarP(&submitFlags.sessionID, "session", "s", "", "session id (random when empty)")
	f.StringVarP(&submitFlags.file, "file", "f", "-", "transcript JSON file, - for stdin")
	f.IntVar(&submitFlags.maxChunks, "max-chunks", 0, "extract at most this many chunks, 0 for adaptive")
	_ = submitCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(submitCmd)
}
