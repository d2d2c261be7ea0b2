package memory

import (
	"cmp"
	"slices"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
)

// PrioritizeChunks orders chunks health content first, then by importance,
// then latest first. The input slice is left untouched.
func PrioritizeChunks(chunks []core.Chunk) []core.Chunk {
	return prioritize(chunks, true)
}

func prioritize(chunks []core.Chunk, healthFirst bool) []core.Chunk {
	out := slices.Clone(chunks)
	slices.SortStableFunc(out, func(a, b core.Chunk) int {
		if healthFirst && a.HasHealthContent != b.HasHealthContent {
			if a.HasHealthContent {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Importance, a.Importance); c != 0 {
			return c
		}
		return cmp.Compare(b.StartIndex, a.StartIndex)
	})
	return out
}

// GetOptimalChunks chunks messages with strategy and returns the best
// maxChunks of them in priority order. maxChunks <= 0 returns all.
func (c *Chunker) GetOptimalChunks(messages []core.Message, maxChunks int, strategy Strategy) []core.Chunk {
	strategy = strategy.normalized()
	ordered := prioritize(c.ChunkConversation(messages, strategy), strategy.PrioritizeHealthContent)
	if maxChunks > 0 && len(ordered) > maxChunks {
		ordered = ordered[:maxChunks]
	}
	return ordered
}
