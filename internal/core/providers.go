package core

import "context"

// AIProvider is the text-understanding oracle.
type AIProvider interface {
	Chat(ctx context.Context, history []Message) (Message, error)
}

// Embedder turns text into vectors for the semantic store. Passages may be
// split, so EncodePassage returns one vector per piece.
type Embedder interface {
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	EncodePassage(ctx context.Context, text string) ([][]float32, error)
}

// Tokenizer estimates how many model tokens a text occupies.
type Tokenizer interface {
	Count(text string) int
}
