package llm

import (
	"context"
	"fmt"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/config"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
)

// NewProvider creates the configured oracle wrapped in the pacing limiter.
func NewProvider(ctx context.Context, cfg *config.ProviderConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Float64("rps", cfg.OracleRPS).
		Msg("starting llm provider")

	var provider core.AIProvider
	switch cfg.Provider {
	case "openai":
		provider = NewOpenAI(cfg.OpenAIAPIKey, cfg.Model)
	case "anthropic":
		provider = NewAnthropic(cfg.AnthropicAPIKey, cfg.Model)
	case "gemini":
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		provider = g
	case "openrouter":
		provider = NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model)
	case "ollama":
		provider = NewOllama(cfg.OllamaBaseURL, cfg.OllamaAPIKey, cfg.Model)
	case "custom":
		provider = NewCustomOpenAI(cfg.CustomOpenAIBaseURL, cfg.CustomOpenAIAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	return NewPaced(provider, cfg.OracleRPS, cfg.OracleBurst, cfg.OracleTimeout), nil
}
