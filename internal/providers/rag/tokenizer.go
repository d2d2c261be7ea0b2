package rag

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/pkoukk/tiktoken-go"
)

const (
	TokenizerHeuristic = "heuristic"
	TokenizerTiktoken  = "tiktoken"

	defaultEncoding      = "cl100k_base"
	defaultCharsPerToken = 4
)

// HeuristicTokenizer estimates ceil(chars / CharsPerToken).
type HeuristicTokenizer struct {
	CharsPerToken int
}

func NewHeuristicTokenizer() HeuristicTokenizer {
	return HeuristicTokenizer{CharsPerToken: defaultCharsPerToken}
}

func (h HeuristicTokenizer) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	per := h.CharsPerToken
	if per <= 0 {
		per = defaultCharsPerToken
	}
	return (n + per - 1) / per
}

// TiktokenTokenizer counts BPE tokens of a tiktoken encoding.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

// NewTiktokenTokenizer loads cl100k_base once per process.
func NewTiktokenTokenizer() (*TiktokenTokenizer, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding(defaultEncoding)
	})
	if tkErr != nil {
		return nil, fmt.Errorf("load tiktoken %s: %w", defaultEncoding, tkErr)
	}
	return &TiktokenTokenizer{enc: tk}, nil
}

func (t *TiktokenTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// NewTokenizer picks a tokenizer by name. Unknown names are an error, an
// empty name means the heuristic.
func NewTokenizer(name string) (core.Tokenizer, error) {
	switch name {
	case "", TokenizerHeuristic:
		return NewHeuristicTokenizer(), nil
	case TokenizerTiktoken:
		t, err := NewTiktokenTokenizer()
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer: %s", name)
	}
}
