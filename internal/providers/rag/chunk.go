package rag

import (
	"strings"
	"unicode"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
)

type Chunk struct {
	Text      string
	TokenSize int
	Index     int
}

type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// PassageChunkerConfig fits the common 512-token embedding window with
// some headroom for the heuristic estimate.
func PassageChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     400,
		OverlapTokens: 50,
	}
}

// ChunkText splits text on sentence boundaries into pieces of at most
// cfg.MaxTokens, carrying about cfg.OverlapTokens of trailing sentences into
// the next piece.
func ChunkText(text string, cfg ChunkerConfig, tok core.Tokenizer) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if cfg.MaxTokens <= 0 {
		cfg = PassageChunkerConfig()
	}

	sentences := splitSentences(text)

	var chunks []Chunk
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      strings.TrimSpace(current.String()),
			TokenSize: currentTokens,
			Index:     len(chunks),
		})
		current.Reset()
		currentTokens = 0
	}

	for i, sentence := range sentences {
		sentenceTokens := tok.Count(sentence)

		// sentence alone is over budget: cut it by words
		if sentenceTokens > cfg.MaxTokens {
			flush()
			for _, piece := range chunkLongText(sentence, cfg.MaxTokens, tok) {
				piece.Index = len(chunks)
				chunks = append(chunks, piece)
			}
			continue
		}

		if currentTokens+sentenceTokens > cfg.MaxTokens && current.Len() > 0 {
			flush()

			overlap := overlapFromSentences(sentences, i, cfg.OverlapTokens, tok)
			if overlap != "" && tok.Count(overlap)+sentenceTokens <= cfg.MaxTokens {
				current.WriteString(overlap)
				currentTokens = tok.Count(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += sentenceTokens
	}
	flush()

	return chunks
}

// chunkLongText packs whole words up to maxTokens. A single word over the
// budget is cut by runes.
func chunkLongText(text string, maxTokens int, tok core.Tokenizer) []Chunk {
	var chunks []Chunk
	var words []string
	tokens := 0

	flush := func() {
		if len(words) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Text: strings.Join(words, " "), TokenSize: tokens})
		words = words[:0]
		tokens = 0
	}

	for _, w := range strings.Fields(text) {
		wt := tok.Count(w)
		if wt > maxTokens {
			flush()
			for _, piece := range splitRunes(w, maxTokens, tok) {
				chunks = append(chunks, Chunk{Text: piece, TokenSize: tok.Count(piece)})
			}
			continue
		}
		if tokens+wt > maxTokens {
			flush()
		}
		words = append(words, w)
		tokens += wt
	}
	flush()

	return chunks
}

func splitRunes(word string, maxTokens int, tok core.Tokenizer) []string {
	var pieces []string
	var cur []rune
	for _, r := range word {
		if len(cur) > 0 && tok.Count(string(append(cur, r))) > maxTokens {
			pieces = append(pieces, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		pieces = append(pieces, string(cur))
	}
	return pieces
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '．': true, '…': true,
}

func splitSentences(text string) []string {
	var sentences []string

	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)

		for i, r := range runes {
			current.WriteRune(r)

			if sentenceEnders[r] {
				if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1]) {
					if s := strings.TrimSpace(current.String()); s != "" {
						sentences = append(sentences, s)
					}
					current.Reset()
				}
			}
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 && text != "" {
		return []string{text}
	}
	return sentences
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n\n")

	var result []string
	for _, p := range parts {
		// soft wraps inside a paragraph
		p = strings.ReplaceAll(p, "\n", " ")
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func overlapFromSentences(sentences []string, currentIdx, targetTokens int, tok core.Tokenizer) string {
	if currentIdx == 0 || targetTokens <= 0 {
		return ""
	}

	var overlap []string
	tokens := 0
	for i := currentIdx - 1; i >= 0 && tokens < targetTokens; i-- {
		overlap = append([]string{sentences[i]}, overlap...)
		tokens += tok.Count(sentences[i])
	}
	return strings.Join(overlap, " ")
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
