package log

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewContextWithLogger_DebugLevel(t *testing.T) {
	out := &syncBuffer{}
	ctx, cleanup := newContextWithWriter(context.Background(), out, true)

	FromCtx(ctx).Debug().Str("chunk", "chunk_0_4").Msg("extracting")
	time.Sleep(50 * time.Millisecond)
	cleanup()

	got := out.String()
	if !strings.Contains(got, "extracting") || !strings.Contains(got, "chunk_0_4") {
		t.Errorf("debug line missing from output: %q", got)
	}
}

func TestNewContextWithLogger_InfoHidesDebug(t *testing.T) {
	out := &syncBuffer{}
	ctx, cleanup := newContextWithWriter(context.Background(), out, false)

	FromCtx(ctx).Debug().Msg("hidden")
	FromCtx(ctx).Info().Msg("shown")
	time.Sleep(50 * time.Millisecond)
	cleanup()

	got := out.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line leaked at info level: %q", got)
	}
	if !strings.Contains(got, "shown") {
		t.Errorf("info line missing: %q", got)
	}
}
