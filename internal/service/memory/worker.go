package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
)

const defaultPopTimeout = 5 * time.Second

// Worker consumes transcript jobs from a queue and runs the pipeline for
// each. Job failures are logged; the worker keeps going.
type Worker struct {
	queue      core.TranscriptQueue
	pipeline   *Pipeline
	PopTimeout time.Duration

	done chan struct{}
}

func NewWorker(queue core.TranscriptQueue, pipeline *Pipeline) *Worker {
	return &Worker{
		queue:      queue,
		pipeline:   pipeline,
		PopTimeout: defaultPopTimeout,
		done:       make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("starting transcript worker")
	defer close(w.done)

	for {
		if ctx.Err() != nil {
			return nil
		}

		job, err := w.queue.Pop(ctx, w.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error().Err(err).Msg("queue pop failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *core.Job) {
	logger := log.FromCtx(ctx)
	res, err := w.pipeline.Run(ctx, RunRequest{
		UserID:    job.UserID,
		SessionID: job.SessionID,
		Messages:  job.Messages,
		MaxChunks: job.MaxChunks,
	})
	if err != nil {
		logger.Error().Err(err).Str("job_id", job.ID).Str("user_id", job.UserID).Msg("transcript job failed")
		return
	}
	logger.Info().
		Str("job_id", job.ID).
		Int("entries", len(res.Entries)).
		Int("chunks_failed", res.ChunksFailed).
		Dur("queued_for", time.Since(job.EnqueuedAt)).
		Msg("transcript job done")
}

// Shutdown waits for the in-flight job to finish or ctx to expire.
func (w *Worker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("transcript worker did not stop: %w", ctx.Err())
	}
}
