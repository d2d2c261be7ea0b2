package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/service/memory"
	redisstore "github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/storage/redis"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/transport/httpapi"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the queue worker and the metrics/health endpoint",
	Long:         `Pops queued transcripts from Redis and extracts them one at a time. Exposes /healthz and /metrics on METRICS_ADDR.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting healthmem")

		a, err := newApp(ctx, appOptions{withOracle: true, withRedis: true})
		if err != nil {
			return err
		}

		worker := memory.NewWorker(redisstore.NewQueue(a.redis, a.extCfg.QueueName), a.pipeline)
		ops := httpapi.NewServer(a.appCfg.MetricsAddr, a.metrics.Handler(), map[string]httpapi.Check{
			"redis": func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
			"store": func(ctx context.Context) error {
				_, err := a.store.GetContextBuckets(ctx, "healthcheck")
				return err
			},
		})

		// Shut down last to first: release storage after the worker drains.
		group := srv.NewGroup(
			srv.NewCleanup(func(ctx context.Context) error { a.Close(ctx); return nil }),
			ops,
			worker,
		)

		group.Start(ctx)
		runErr := group.Wait(ctx)
		if err := group.Shutdown(ctx); err != nil && runErr == nil {
			runErr = err
		}
		if runErr != nil {
			return runErr
		}
		logger.Info().Msg("healthmem has been shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
