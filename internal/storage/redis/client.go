// Package redis coordinates extraction runs across processes: a per-user
// run lock and the transcript job queue.
package redis

import (
	"context"
	"fmt"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// NewClient parses a redis:// URL and waits until the server answers.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	err = retry.NewDefaultRetrier().Do(ctx, func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("addr", opts.Addr).Msg("redis not ready")
			return err
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
