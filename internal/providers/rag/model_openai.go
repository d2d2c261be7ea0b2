package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIModel calls an OpenAI-compatible /v1/embeddings endpoint. Ollama,
// LM Studio and OpenAI itself all speak it.
type OpenAIModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	dims    int

	queryPrefix   string
	passagePrefix string
}

type OpenAIModelConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Dims    int
	// E5-style models expect "query: " / "passage: " prefixes.
	QueryPrefix   string
	PassagePrefix string
}

func NewOpenAIModel(cfg OpenAIModelConfig) *OpenAIModel {
	return &OpenAIModel{
		client:        &http.Client{Timeout: 60 * time.Second},
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		dims:          cfg.Dims,
		queryPrefix:   cfg.QueryPrefix,
		passagePrefix: cfg.PassagePrefix,
	}
}

func (m *OpenAIModel) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, m.queryPrefix+text)
}

func (m *OpenAIModel) EncodePassage(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, m.passagePrefix+text)
}

func (m *OpenAIModel) Dims() int {
	return m.dims
}

func (m *OpenAIModel) Shutdown() error {
	m.client.CloseIdleConnections()
	return nil
}

func (m *OpenAIModel) embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model": m.model,
		"input": text,
	}
	if m.dims > 0 {
		payload["dimensions"] = m.dims
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	vec := result.Data[0].Embedding
	normalize(vec)
	return vec, nil
}
