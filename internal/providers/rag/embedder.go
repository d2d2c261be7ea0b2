package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
)

const defaultEmbedTimeout = 30 * time.Second

// DualEncoder is an embedding model with separate query and passage modes.
type DualEncoder interface {
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	EncodePassage(ctx context.Context, text string) ([]float32, error)
	Dims() int
	Shutdown() error
}

// Embedder adapts a DualEncoder to core.Embedder. Passages are split to fit
// the model window and every piece is embedded separately.
type Embedder struct {
	model     DualEncoder
	tokenizer core.Tokenizer
	timeout   time.Duration
	chunkConf ChunkerConfig
}

func NewEmbedder(model DualEncoder, tokenizer core.Tokenizer) *Embedder {
	if tokenizer == nil {
		tokenizer = NewHeuristicTokenizer()
	}
	return &Embedder{
		model:     model,
		tokenizer: tokenizer,
		timeout:   defaultEmbedTimeout,
		chunkConf: PassageChunkerConfig(),
	}
}

func (e *Embedder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.model.EncodeQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return vec, nil
}

func (e *Embedder) EncodePassage(ctx context.Context, text string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	chunks := ChunkText(text, e.chunkConf, e.tokenizer)
	embeddings := make([][]float32, 0, len(chunks))

	for _, chunk := range chunks {
		log.FromCtx(ctx).Debug().Int("chunk", chunk.Index).Int("tokens", chunk.TokenSize).Msg("embedding passage chunk")
		emb, err := e.model.EncodePassage(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d: %w", chunk.Index, err)
		}
		embeddings = append(embeddings, emb)
	}
	return embeddings, nil
}

func (e *Embedder) Dims() int {
	return e.model.Dims()
}

func (e *Embedder) Shutdown() error {
	return e.model.Shutdown()
}
