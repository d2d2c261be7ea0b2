package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
)

// Extractor turns one chunk into memory candidates with a single oracle
// call. Pacing and per-call timeouts belong to the provider.
type Extractor struct {
	ai      core.AIProvider
	metrics *Metrics
}

func NewExtractor(ai core.AIProvider, metrics *Metrics) *Extractor {
	return &Extractor{ai: ai, metrics: metrics}
}

func (e *Extractor) ExtractFromChunk(ctx context.Context, chunk core.Chunk) ([]core.Candidate, error) {
	logger := log.FromCtx(ctx)
	logger.Debug().
		Str("chunk_id", chunk.ID).
		Int("messages", len(chunk.Messages)).
		Int("tokens", chunk.TokenCount).
		Msg("extracting memories from chunk")

	started := time.Now()
	resp, err := e.ai.Chat(ctx, buildExtractionMessages(chunk))
	e.metrics.observeOracle(time.Since(started))
	if err != nil {
		return nil, &core.OracleCallError{ChunkID: chunk.ID, Cause: err}
	}

	candidates, err := parseExtractionResponse(resp.Content)
	if err != nil {
		logger.Debug().Str("chunk_id", chunk.ID).Str("content", resp.Content).Msg("unparseable extraction")
		return nil, &core.ExtractionParseError{ChunkID: chunk.ID, Cause: err}
	}

	for i := range candidates {
		candidates[i].Importance = clamp01(candidates[i].Importance * chunk.Importance)
	}
	return candidates, nil
}

// rawCandidate accepts the shapes models actually produce: numbers as
// strings, a single string where a list is expected, nulls everywhere.
type rawCandidate struct {
	Type            string          `json:"type"`
	Summary         string          `json:"summary"`
	Details         json.RawMessage `json:"details"`
	Confidence      json.RawMessage `json:"confidence"`
	Importance      json.RawMessage `json:"importance"`
	RelatedSymptoms json.RawMessage `json:"related_symptoms"`
	Tags            json.RawMessage `json:"tags"`
	SourceExcerpts  json.RawMessage `json:"source_excerpts"`
}

func parseExtractionResponse(content string) ([]core.Candidate, error) {
	jsonStr := extractJSONArray(content)
	if jsonStr == "" {
		return nil, errors.New("no JSON array found in response")
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &items); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}

	candidates := make([]core.Candidate, 0, len(items))
	for _, item := range items {
		var raw rawCandidate
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		if c, ok := raw.candidate(); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func (r rawCandidate) candidate() (core.Candidate, bool) {
	t, err := core.ParseMemoryType(r.Type)
	if err != nil {
		return core.Candidate{}, false
	}
	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		return core.Candidate{}, false
	}

	return core.Candidate{
		Type:            t,
		Summary:         summary,
		Details:         core.DecodeDetails(t, r.Details),
		Confidence:      clamp01(looseFloat(r.Confidence)),
		Importance:      clamp01(looseFloat(r.Importance)),
		RelatedSymptoms: dedupe(looseStrings(r.RelatedSymptoms, true), true),
		Tags:            dedupe(looseStrings(r.Tags, true), false),
		SourceExcerpts:  dedupe(looseStrings(r.SourceExcerpts, false), false),
	}, true
}

func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content[start:], "]")
	if end == -1 {
		return ""
	}

	return content[start : start+end+1]
}

func looseFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// looseStrings accepts a list or a single string. With split, a single
// string is read as a comma separated list; otherwise it is one value.
func looseStrings(raw json.RawMessage, split bool) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if !split {
			return []string{s}
		}
		return strings.Split(s, ",")
	}
	return nil
}

// dedupe trims values, drops empties and repeats, optionally lowercasing.
func dedupe(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
