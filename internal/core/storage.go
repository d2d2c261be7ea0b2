package core

import (
	"context"
	"time"
)

// SchemaInitializer is implemented by stores that need a one-time,
// idempotent bootstrap before first use.
type SchemaInitializer interface {
	EnsureSchema(ctx context.Context) error
}

type EntryRepository interface {
	SaveEntry(ctx context.Context, entry Entry) error
	// ListEntries returns the newest entries of a user first. limit <= 0
	// means no limit.
	ListEntries(ctx context.Context, userID string, limit int) ([]Entry, error)
}

type ContextRepository interface {
	// AppendContext folds items into the (userID, t) bucket atomically and
	// keeps at most maxItems of them.
	AppendContext(ctx context.Context, userID string, t MemoryType, sessionID string, items []Projection, maxItems int) (ContextBucket, error)
	GetContextBuckets(ctx context.Context, userID string) ([]ContextBucket, error)
}

// MemoryStore is the durable store behind one extraction pipeline.
type MemoryStore interface {
	SchemaInitializer
	EntryRepository
	ContextRepository
	Close() error
}

// SemanticStore indexes candidates for similarity recall.
type SemanticStore interface {
	BatchStoreMemories(ctx context.Context, userID, sessionID string, candidates []Candidate) error
	GetContextualMemories(ctx context.Context, userID, query string, relatedSymptoms []string) (string, error)
}

// UserLocker serializes runs of the same user.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (func(), error)
}

// Job is a queued transcript waiting for extraction.
type Job struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Messages   []Message `json:"messages"`
	MaxChunks  int       `json:"max_chunks,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type TranscriptQueue interface {
	Push(ctx context.Context, job Job) error
	// Pop blocks up to timeout. It returns (nil, nil) when nothing arrived.
	Pop(ctx context.Context, timeout time.Duration) (*Job, error)
}
