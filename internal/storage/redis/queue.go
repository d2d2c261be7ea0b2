package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Queue is a FIFO transcript queue on a Redis list: LPUSH in, BRPOP out.
type Queue struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

var _ core.TranscriptQueue = (*Queue)(nil)

func NewQueue(client redis.Cmdable, key string) *Queue {
	return &Queue{client: client, key: key, now: time.Now}
}

func (q *Queue) Push(ctx context.Context, job core.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*core.Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop job: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("pop job: unexpected reply %v", res)
	}

	var job core.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}
