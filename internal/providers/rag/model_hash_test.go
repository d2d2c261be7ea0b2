package rag

import (
	"context"
	"math"
	"testing"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashModel_Deterministic(t *testing.T) {
	m := NewHashModel(64)
	ctx := context.Background()

	a, err := m.EncodePassage(ctx, "Throbbing headache every morning")
	require.NoError(t, err)
	b, err := m.EncodePassage(ctx, "Throbbing headache every morning")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashModel_UnitLength(t *testing.T) {
	m := NewHashModel(0)
	for _, text := range []string{"chest pain after running", "", "!!!"} {
		v, err := m.EncodeQuery(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, v, defaultHashDims)
		assert.InDelta(t, 1.0, math.Sqrt(cosine(v, v)), 1e-5, "text %q", text)
	}
}

func TestHashModel_SharedVocabularyIsCloser(t *testing.T) {
	m := NewHashModel(256)
	ctx := context.Background()

	q, _ := m.EncodeQuery(ctx, "headache in the morning")
	near, _ := m.EncodePassage(ctx, "morning headache for two weeks")
	far, _ := m.EncodePassage(ctx, "takes metformin with dinner")

	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestHashModel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashModel(8).EncodeQuery(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEmbeddingModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantType any
		wantErr  bool
	}{
		{name: "hash", provider: ProviderHash, wantType: &HashModel{}},
		{name: "openai", provider: ProviderOpenAI, wantType: &OpenAIModel{}},
		{name: "ollama", provider: ProviderOllama, wantType: &OpenAIModel{}},
		{name: "unknown", provider: "word2vec", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewEmbeddingModel(context.Background(), &config.RAGConfig{
				EmbeddingProvider: tt.provider,
				EmbeddingDims:     32,
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, m)
		})
	}
}
