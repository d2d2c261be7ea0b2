package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEncoder struct {
	mu          sync.Mutex
	queries     []string
	passages    []string
	deadlines   []bool
	failOn      int // 1-based passage call that fails, 0 for never
	queryErr    error
	shutdownErr error
}

func (r *recordingEncoder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := ctx.Deadline()
	r.deadlines = append(r.deadlines, ok)
	r.queries = append(r.queries, text)
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	return []float32{float32(len(text)), 0, 1}, nil
}

func (r *recordingEncoder) EncodePassage(ctx context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passages = append(r.passages, text)
	if r.failOn == len(r.passages) {
		return nil, errors.New("model overloaded")
	}
	return []float32{float32(len(r.passages)), 1, 0}, nil
}

func (r *recordingEncoder) Dims() int { return 3 }

func (r *recordingEncoder) Shutdown() error { return r.shutdownErr }

func longNote(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "On day %d the patient reported a dull ache in the lower back after lifting boxes at work. ", i)
	}
	return b.String()
}

func TestEmbedder_EncodeQuery(t *testing.T) {
	t.Run("delegates with deadline", func(t *testing.T) {
		enc := &recordingEncoder{}
		e := NewEmbedder(enc, nil)

		vec, err := e.EncodeQuery(context.Background(), "back pain")
		require.NoError(t, err)
		assert.Equal(t, []float32{9, 0, 1}, vec)
		assert.Equal(t, []string{"back pain"}, enc.queries)
		assert.Equal(t, []bool{true}, enc.deadlines)
	})

	t.Run("wraps model error", func(t *testing.T) {
		errModel := errors.New("quota")
		e := NewEmbedder(&recordingEncoder{queryErr: errModel}, nil)

		_, err := e.EncodeQuery(context.Background(), "x")
		assert.ErrorIs(t, err, errModel)
		assert.Contains(t, err.Error(), "failed to encode query")
	})
}

func TestEmbedder_EncodePassage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantMulti bool
	}{
		{name: "empty", text: "   "},
		{name: "single sentence", text: "Takes 500mg of metformin twice a day."},
		{name: "long note is split", text: longNote(80), wantMulti: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &recordingEncoder{}
			e := NewEmbedder(enc, nil)

			vecs, err := e.EncodePassage(context.Background(), tt.text)
			require.NoError(t, err)

			want := ChunkText(tt.text, PassageChunkerConfig(), NewHeuristicTokenizer())
			require.Len(t, vecs, len(want))
			require.Len(t, enc.passages, len(want))
			for i, c := range want {
				assert.Equal(t, c.Text, enc.passages[i])
				assert.Equal(t, float32(i+1), vecs[i][0], "pieces keep their order")
			}
			if tt.wantMulti {
				assert.Greater(t, len(vecs), 1)
			}
		})
	}
}

func TestEmbedder_EncodePassageStopsOnError(t *testing.T) {
	enc := &recordingEncoder{failOn: 2}
	e := NewEmbedder(enc, nil)

	_, err := e.EncodePassage(context.Background(), longNote(80))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed chunk 1")
	assert.Len(t, enc.passages, 2)
}

func TestEmbedder_Delegates(t *testing.T) {
	errClose := errors.New("close")
	e := NewEmbedder(&recordingEncoder{shutdownErr: errClose}, nil)
	assert.Equal(t, 3, e.Dims())
	assert.ErrorIs(t, e.Shutdown(), errClose)
}
