package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL    = 15 * time.Minute
	defaultLockWait   = 30 * time.Second
	defaultLockPoll   = 100 * time.Millisecond
	lockKeyPrefix     = "healthmem:lock:"
	releaseLockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
)

// Locker is a core.UserLocker shared by every process using the same
// Redis. The TTL must outlive the longest run.
type Locker struct {
	client redis.Cmdable

	TTL  time.Duration
	Wait time.Duration
	Poll time.Duration
}

var _ core.UserLocker = (*Locker)(nil)

func NewLocker(client redis.Cmdable) *Locker {
	return &Locker{
		client: client,
		TTL:    defaultLockTTL,
		Wait:   defaultLockWait,
		Poll:   defaultLockPoll,
	}
}

// Lock polls until the key is free, ctx ends or Wait elapses. A timeout
// returns core.ErrLockHeld.
func (l *Locker) Lock(ctx context.Context, userID string) (func(), error) {
	key := lockKeyPrefix + userID
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(ctx, key, token), nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("user %s: %w", userID, core.ErrLockHeld)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Poll):
		}
	}
}

// releaser deletes the key only while it still holds our token, so an
// expired lock taken over by another run is left alone.
func (l *Locker) releaser(ctx context.Context, key, token string) func() {
	return func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(relCtx, releaseLockScript, []string{key}, token).Err(); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("key", key).Msg("release lock")
		}
	}
}
