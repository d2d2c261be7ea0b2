package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// ProviderConfig selects and paces the extraction oracle.
type ProviderConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"openrouter" validate:"oneof=openai anthropic gemini openrouter ollama custom"`
	Model    string `env:"LLM_MODEL" envDefault:"google/gemma-3-27b-it:free" validate:"required"`

	OpenAIAPIKey        string `env:"OPENAI_API_KEY" validate:"required_if=Provider openai" secret:"true"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY" validate:"required_if=Provider anthropic" secret:"true"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY" validate:"required_if=Provider gemini" secret:"true"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY" validate:"required_if=Provider openrouter" secret:"true"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY" secret:"true"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL" validate:"required_if=Provider custom"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY" secret:"true"`

	// Token bucket around the oracle. One request per second, no bursts.
	OracleRPS     float64       `env:"ORACLE_RPS" envDefault:"1" validate:"gt=0"`
	OracleBurst   int           `env:"ORACLE_BURST" envDefault:"1" validate:"min=1"`
	OracleTimeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"90s" validate:"gt=0"`
}

func ParseProviderConfig() (*ProviderConfig, error) {
	c := &ProviderConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}
