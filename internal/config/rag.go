package config

import "github.com/caarlos0/env/v11"

type RAGConfig struct {
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"hash" validate:"oneof=hash gemini openai ollama"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL"`
	EmbeddingDims     int    `env:"EMBEDDING_DIMS" envDefault:"768" validate:"min=8"`
	EmbeddingBaseURL  string `env:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey   string `env:"EMBEDDING_API_KEY" secret:"true"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY" validate:"required_if=EmbeddingProvider gemini" secret:"true"`
	Tokenizer         string `env:"TOKENIZER" envDefault:"heuristic" validate:"oneof=heuristic tiktoken"`
}

func ParseRAGConfig() (*RAGConfig, error) {
	cfg := &RAGConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
