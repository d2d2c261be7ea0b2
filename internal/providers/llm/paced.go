package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"golang.org/x/time/rate"
)

// Paced puts a token bucket in front of a provider. The bucket starts full,
// so the first call of a run goes out immediately and later calls wait for
// a token; nothing waits after the last call.
type Paced struct {
	next    core.AIProvider
	limiter *rate.Limiter
	timeout time.Duration
}

func NewPaced(next core.AIProvider, rps float64, burst int, timeout time.Duration) *Paced {
	if burst < 1 {
		burst = 1
	}
	return &Paced{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		timeout: timeout,
	}
}

func (p *Paced) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return core.Message{}, fmt.Errorf("pacing: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.next.Chat(ctx, history)
}
