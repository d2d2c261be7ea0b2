package rag

import (
	"context"
	"fmt"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/config"
)

const (
	ProviderHash   = "hash"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

func NewEmbeddingModel(ctx context.Context, cfg *config.RAGConfig) (DualEncoder, error) {
	switch cfg.EmbeddingProvider {
	case ProviderHash:
		return NewHashModel(cfg.EmbeddingDims), nil
	case ProviderGemini:
		m, err := NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDims)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ProviderOpenAI:
		baseURL := cfg.EmbeddingBaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		model := cfg.EmbeddingModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIModel(OpenAIModelConfig{
			BaseURL: baseURL,
			APIKey:  cfg.EmbeddingAPIKey,
			Model:   model,
			Dims:    cfg.EmbeddingDims,
		}), nil
	case ProviderOllama:
		baseURL := cfg.EmbeddingBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.EmbeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOpenAIModel(OpenAIModelConfig{
			BaseURL:       baseURL,
			APIKey:        cfg.EmbeddingAPIKey,
			Model:         model,
			QueryPrefix:   "search_query: ",
			PassagePrefix: "search_document: ",
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbeddingProvider)
	}
}
