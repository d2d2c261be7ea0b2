package rag

import (
	"testing"
)

func TestChunkText(t *testing.T) {
	tok := NewHeuristicTokenizer()

	tests := []struct {
		name           string
		text           string
		cfg            ChunkerConfig
		expectedChunks []string
	}{
		{
			name:           "Empty input",
			text:           "",
			cfg:            PassageChunkerConfig(),
			expectedChunks: nil,
		},
		{
			name:           "Whitespace only",
			text:           "   \n\t   ",
			cfg:            PassageChunkerConfig(),
			expectedChunks: nil,
		},
		{
			name: "Single sentence fits",
			text: "Hello world.",
			cfg: ChunkerConfig{
				MaxTokens:     10,
				OverlapTokens: 0,
			},
			expectedChunks: []string{"Hello world."},
		},
		{
			name: "Two sentences fit in one chunk",
			text: "Hello world. How are you?",
			cfg: ChunkerConfig{
				MaxTokens:     10,
				OverlapTokens: 0,
			},
			expectedChunks: []string{"Hello world. How are you?"},
		},
		{
			name: "Split by sentence (No Overlap)",
			text: "First sentence. Second sentence.",
			cfg: ChunkerConfig{
				// each sentence is 4 heuristic tokens
				MaxTokens:     4,
				OverlapTokens: 0,
			},
			expectedChunks: []string{
				"First sentence.",
				"Second sentence.",
			},
		},
		{
			name: "Split by sentence (With Overlap)",
			text: "Sentence one. Sentence two. Sentence three.",
			cfg: ChunkerConfig{
				MaxTokens:     8,
				OverlapTokens: 4,
			},
			expectedChunks: []string{
				"Sentence one. Sentence two.",
				"Sentence two. Sentence three.",
			},
		},
		{
			name: "Overlap dropped when it would not fit",
			text: "First chunk of text. Second chunk of text here.",
			cfg: ChunkerConfig{
				MaxTokens:     10,
				OverlapTokens: 2,
			},
			expectedChunks: []string{
				"First chunk of text.",
				"Second chunk of text here.",
			},
		},
		{
			name: "Long sentence forced split by words",
			text: "One two three four five six.",
			cfg: ChunkerConfig{
				MaxTokens:     3,
				OverlapTokens: 0,
			},
			expectedChunks: []string{
				"One two",
				"three four",
				"five six.",
			},
		},
		{
			name: "Unbreakable word cut by runes",
			text: "Supercalifragilistic",
			cfg: ChunkerConfig{
				MaxTokens:     2,
				OverlapTokens: 0,
			},
			expectedChunks: []string{
				"Supercal",
				"ifragili",
				"stic",
			},
		},
		{
			name: "CJK Text (Chinese)",
			text: "你好世界。这是一个测试。",
			cfg: ChunkerConfig{
				MaxTokens:     20,
				OverlapTokens: 0,
			},
			expectedChunks: []string{
				"你好世界。 这是一个测试。",
			},
		},
		{
			name: "Paragraph handling",
			text: "Para one.\n\nPara two.",
			cfg: ChunkerConfig{
				MaxTokens:     10,
				OverlapTokens: 0,
			},
			expectedChunks: []string{
				"Para one. Para two.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, tt.cfg, tok)

			if len(chunks) != len(tt.expectedChunks) {
				t.Errorf("Expected %d chunks, got %d", len(tt.expectedChunks), len(chunks))
				for i, c := range chunks {
					t.Logf("Chunk %d: %q (Tokens: %d)", i, c.Text, c.TokenSize)
				}
				return
			}

			for i, chunk := range chunks {
				if chunk.Text != tt.expectedChunks[i] {
					t.Errorf("Chunk %d mismatch.\nExpected: %q\nGot:      %q", i, tt.expectedChunks[i], chunk.Text)
				}
				if chunk.Index != i {
					t.Errorf("Chunk %d has index %d", i, chunk.Index)
				}
				if chunk.TokenSize > tt.cfg.MaxTokens {
					t.Errorf("Chunk %d has %d tokens, max %d", i, chunk.TokenSize, tt.cfg.MaxTokens)
				}
			}
		})
	}
}

func TestHeuristicTokenizer(t *testing.T) {
	tests := []struct {
		text string
		per  int
		want int
	}{
		{"", 4, 0},
		{"abcd", 4, 1},
		{"abcde", 4, 2},
		{"Привет", 4, 2},
		{"abcd", 2, 2},
		{"abc", 0, 1},
	}

	for _, tt := range tests {
		got := HeuristicTokenizer{CharsPerToken: tt.per}.Count(tt.text)
		if got != tt.want {
			t.Errorf("Count(%q) with %d chars/token = %d, want %d", tt.text, tt.per, got, tt.want)
		}
	}
}

func TestTiktokenTokenizer(t *testing.T) {
	tok, err := NewTiktokenTokenizer()
	if err != nil {
		// encodings are fetched on first use
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	tests := []struct {
		text string
		want int
	}{
		{"Hello", 1},
		{"Hello world", 2},
		{"Hello, world!", 4},
		{"", 0},
	}

	for _, tt := range tests {
		if got := tok.Count(tt.text); got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestNewTokenizer(t *testing.T) {
	if _, err := NewTokenizer("unknown"); err == nil {
		t.Error("expected error for unknown tokenizer")
	}
	tok, err := NewTokenizer("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tok.(HeuristicTokenizer); !ok {
		t.Errorf("default tokenizer is %T, want HeuristicTokenizer", tok)
	}
}

func TestSplitSentences(t *testing.T) {
	text := "Hello world. How are you? I am fine."
	sentences := splitSentences(text)

	expected := []string{
		"Hello world.",
		"How are you?",
		"I am fine.",
	}

	if len(sentences) != len(expected) {
		t.Fatalf("Expected %d sentences, got %d", len(expected), len(sentences))
	}

	for i, s := range sentences {
		if s != expected[i] {
			t.Errorf("Sentence %d mismatch. Got %q, want %q", i, s, expected[i])
		}
	}
}
