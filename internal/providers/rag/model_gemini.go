package rag

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"

	taskTypeQuery    = "RETRIEVAL_QUERY"
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
)

type GeminiModel struct {
	client *genai.Client
	model  string
	dims   int
}

func NewGeminiModel(ctx context.Context, apiKey, model string, dims int) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	if dims <= 0 {
		dims = 768
	}
	return &GeminiModel{client: client, model: model, dims: dims}, nil
}

func (m *GeminiModel) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text, taskTypeQuery)
}

func (m *GeminiModel) EncodePassage(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text, taskTypeDocument)
}

func (m *GeminiModel) Dims() int {
	return m.dims
}

func (m *GeminiModel) Shutdown() error {
	return nil
}

func (m *GeminiModel) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: text}}}}
	dim := int32(m.dims)

	res, err := m.client.Models.EmbedContent(ctx, m.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini embed: no embeddings returned")
	}

	values := res.Embeddings[0].Values
	// truncated gemini outputs are not unit length
	normalize(values)
	return values, nil
}
