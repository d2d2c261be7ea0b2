package memory

import (
	"errors"
	"math"
	"slices"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/providers/rag"
	"github.com/go-playground/validator/v10"
)

const (
	defaultMaxTokensPerChunk = 2000
	defaultOverlapMessages   = 2
	defaultMinChunkSize      = 3
	defaultMaxChunkSize      = 20
)

// Strategy bounds how a conversation is cut into chunks.
type Strategy struct {
	MaxTokensPerChunk       int `validate:"min=1"`
	OverlapMessages         int `validate:"min=0"`
	MinChunkSize            int `validate:"min=1"`
	MaxChunkSize            int `validate:"min=1"`
	PrioritizeHealthContent bool
	// MaxChunks caps the number of chunks kept; 0 keeps all.
	MaxChunks int `validate:"min=0"`
}

func DefaultStrategy() Strategy {
	return Strategy{
		MaxTokensPerChunk:       defaultMaxTokensPerChunk,
		OverlapMessages:         defaultOverlapMessages,
		MinChunkSize:            defaultMinChunkSize,
		MaxChunkSize:            defaultMaxChunkSize,
		PrioritizeHealthContent: true,
	}
}

var validate = validator.New()

// normalized replaces every invalid field with its default.
func (s Strategy) normalized() Strategy {
	if err := validate.Struct(s); err != nil {
		def := DefaultStrategy()
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return def
		}
		for _, fe := range verrs {
			switch fe.StructField() {
			case "MaxTokensPerChunk":
				s.MaxTokensPerChunk = def.MaxTokensPerChunk
			case "OverlapMessages":
				s.OverlapMessages = def.OverlapMessages
			case "MinChunkSize":
				s.MinChunkSize = def.MinChunkSize
			case "MaxChunkSize":
				s.MaxChunkSize = def.MaxChunkSize
			case "MaxChunks":
				s.MaxChunks = 0
			}
		}
	}
	if s.MinChunkSize > s.MaxChunkSize {
		s.MinChunkSize = s.MaxChunkSize
	}
	return s
}

// Chunker splits conversations into overlapping, token-bounded chunks and
// scores them.
type Chunker struct {
	tokenizer core.Tokenizer
}

func NewChunker(tokenizer core.Tokenizer) *Chunker {
	if tokenizer == nil {
		tokenizer = rag.NewHeuristicTokenizer()
	}
	return &Chunker{tokenizer: tokenizer}
}

// ChunkConversation filters messages down to user/assistant turns and cuts
// them into chunks. Indices in the result refer to the filtered sequence.
func (c *Chunker) ChunkConversation(messages []core.Message, strategy Strategy) []core.Chunk {
	return c.chunkFiltered(core.FilterConversation(messages), strategy.normalized())
}

func (c *Chunker) chunkFiltered(msgs []core.Message, s Strategy) []core.Chunk {
	n := len(msgs)
	if n == 0 {
		return nil
	}

	counts := make([]int, n)
	for i, m := range msgs {
		counts[i] = c.tokenizer.Count(m.Content)
	}

	// fill returns the end (exclusive) and token count of the chunk opening
	// at start. Only the size floor may exceed the token budget.
	fill := func(start int) (int, int) {
		i, tokens := start, 0
		for i < n && i-start < s.MaxChunkSize {
			if i > start && tokens+counts[i] > s.MaxTokensPerChunk {
				break
			}
			tokens += counts[i]
			i++
		}
		for i < n && i-start < s.MinChunkSize {
			tokens += counts[i]
			i++
		}
		return i, tokens
	}

	var chunks []core.Chunk
	start, prevEnd := 0, -1
	for start < n {
		i, tokens := fill(start)
		if i <= prevEnd+1 {
			// the overlap alone fills the budget; drop it
			start = prevEnd + 1
			i, tokens = fill(start)
		}
		end := i - 1

		chunks = append(chunks, c.newChunk(msgs, start, end, tokens))
		if end >= n-1 {
			break
		}

		next := end - s.OverlapMessages + 1
		if next <= start {
			next = end + 1
		}
		start, prevEnd = next, end
	}
	return chunks
}

func (c *Chunker) newChunk(msgs []core.Message, start, end, tokens int) core.Chunk {
	window := make([]core.Message, end-start+1)
	copy(window, msgs[start:end+1])

	health, user := 0, 0
	for _, m := range window {
		if ContainsHealthTerm(m.Content) {
			health++
		}
		if m.Role == core.RoleUser {
			user++
		}
	}

	return core.Chunk{
		ID:               core.ChunkID(start, end),
		Messages:         window,
		StartIndex:       start,
		EndIndex:         end,
		TokenCount:       tokens,
		Importance:       scoreImportance(health, user, len(window), end, len(msgs)),
		HasHealthContent: health > 0,
	}
}

// scoreImportance weighs health density first, then the share of user
// turns, plus a small bonus for later positions in the conversation.
func scoreImportance(health, user, size, end, total int) float64 {
	if size == 0 || total == 0 {
		return 0
	}
	score := 0.5 +
		0.3*float64(health)/float64(size) +
		0.2*float64(user)/float64(size) +
		0.1*float64(end+1)/float64(total)
	return math.Max(0, math.Min(1, score))
}

// AdaptiveChunk picks a strategy from the conversation length: short
// conversations become a single chunk, longer ones a few overlapping chunks.
// When more chunks than the profile allows are produced, the highest
// priority ones are kept in chronological order.
func (c *Chunker) AdaptiveChunk(messages []core.Message) []core.Chunk {
	msgs := core.FilterConversation(messages)
	s, ok := adaptiveStrategy(len(msgs))
	if !ok {
		return nil
	}

	chunks := c.chunkFiltered(msgs, s.normalized())
	if s.MaxChunks <= 0 || len(chunks) <= s.MaxChunks {
		return chunks
	}

	kept := prioritize(chunks, s.PrioritizeHealthContent)[:s.MaxChunks]
	slices.SortFunc(kept, func(a, b core.Chunk) int {
		return a.StartIndex - b.StartIndex
	})
	return kept
}

func adaptiveStrategy(n int) (Strategy, bool) {
	switch {
	case n == 0:
		return Strategy{}, false
	case n <= 10:
		return Strategy{
			MaxTokensPerChunk:       8000,
			OverlapMessages:         0,
			MinChunkSize:            n,
			MaxChunkSize:            n,
			PrioritizeHealthContent: true,
			MaxChunks:               1,
		}, true
	case n <= 30:
		return Strategy{
			MaxTokensPerChunk:       3000,
			OverlapMessages:         3,
			MinChunkSize:            3,
			MaxChunkSize:            ceilDiv(n+6, 3),
			PrioritizeHealthContent: true,
			MaxChunks:               3,
		}, true
	default:
		return Strategy{
			MaxTokensPerChunk:       1500,
			OverlapMessages:         2,
			MinChunkSize:            3,
			MaxChunkSize:            ceilDiv(n+6, 4),
			PrioritizeHealthContent: true,
			MaxChunks:               4,
		}, true
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
