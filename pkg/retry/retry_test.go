package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:    maxRetries,
		BackoffFactor: 2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	}
}

var (
	errConflict = errors.New("transaction conflict")
	errSchema   = errors.New("schema mismatch")
)

func TestRetry_Do(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		failures  int   // attempts that fail before success
		failWith  error // error returned by failing attempts
		wantCalls int
		wantErr   error
	}{
		{name: "first try", config: fastConfig(3), wantCalls: 1},
		{name: "after two conflicts", config: fastConfig(3), failures: 2, failWith: errConflict, wantCalls: 3},
		{name: "retries exhausted", config: fastConfig(2), failures: 10, failWith: errConflict, wantCalls: 3, wantErr: errConflict},
		{name: "permanent", config: fastConfig(5), failures: 10, failWith: Permanent(errSchema), wantCalls: 1, wantErr: errSchema},
		{
			name: "predicate rejects",
			config: func() *Config {
				c := fastConfig(5)
				c.Retryable = func(err error) bool { return errors.Is(err, errConflict) }
				return c
			}(),
			failures: 10, failWith: errSchema, wantCalls: 1, wantErr: errSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := NewRetrier(tt.config).Do(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			})

			if calls != tt.wantCalls {
				t.Errorf("expected %d attempts, got %d", tt.wantCalls, calls)
			}
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewDefaultRetrier()

	err := retrier.Do(ctx, func() error {
		cancel()
		return errConflict
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_Backoff(t *testing.T) {
	config := &Config{
		MaxRetries:    2,
		BackoffFactor: 2,
		InitialDelay:  20 * time.Millisecond,
		MaxDelay:      time.Second,
		Jitter:        5 * time.Millisecond,
	}

	start := time.Now()
	_ = NewRetrier(config).Do(context.Background(), func() error { return errConflict })
	elapsed := time.Since(start)

	// 20ms before the second attempt, 40ms before the third.
	if want := 60 * time.Millisecond; elapsed < want {
		t.Errorf("expected at least %v of backoff, got %v", want, elapsed)
	}
}

func TestRetry_MaxDelayCaps(t *testing.T) {
	config := &Config{
		MaxRetries:    3,
		BackoffFactor: 100,
		InitialDelay:  2 * time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	}

	start := time.Now()
	_ = NewRetrier(config).Do(context.Background(), func() error { return errConflict })
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("delay not capped, took %v", elapsed)
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
