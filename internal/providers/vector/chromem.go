// Package vector is the in-process semantic store: one chromem-go
// collection per user.
package vector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const defaultRecallLimit = 8

type Store struct {
	db       *chromem.DB
	embedder core.Embedder

	Limit int

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

var _ core.SemanticStore = (*Store)(nil)

// NewStore opens a persistent database under path, or an in-memory one
// when path is empty.
func NewStore(path string, embedder core.Embedder) (*Store, error) {
	db := chromem.NewDB()
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}
	return &Store{
		db:          db,
		embedder:    embedder,
		Limit:       defaultRecallLimit,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EncodeQuery(ctx, text)
	}
}

func (s *Store) collection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[userID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection("user_"+userID, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

func (s *Store) BatchStoreMemories(ctx context.Context, userID, sessionID string, candidates []core.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	col, err := s.collection(userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var docs []chromem.Document
	for _, c := range candidates {
		text := strings.TrimSpace(c.Summary)
		if text == "" {
			continue
		}
		vectors, err := s.embedder.EncodePassage(ctx, text)
		if err != nil {
			return fmt.Errorf("embed memory: %w", err)
		}

		memoryID := uuid.NewString()
		for i, vec := range vectors {
			docs = append(docs, chromem.Document{
				ID:        fmt.Sprintf("%s#%d", memoryID, i),
				Content:   text,
				Embedding: vec,
				Metadata: map[string]string{
					"memory_id":    memoryID,
					"memory_type":  string(c.Type),
					"session_id":   sessionID,
					"extracted_at": now,
				},
			})
		}
	}
	if len(docs) == 0 {
		return nil
	}

	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	log.FromCtx(ctx).Debug().Str("user_id", userID).Int("documents", len(docs)).Msg("indexed memories")
	return nil
}

func (s *Store) GetContextualMemories(ctx context.Context, userID, query string, relatedSymptoms []string) (string, error) {
	text := core.RecallQuery(query, relatedSymptoms)
	if text == "" {
		return "", nil
	}
	col, err := s.collection(userID)
	if err != nil {
		return "", err
	}

	// chromem rejects nResults above the collection size
	n := min(s.Limit*3, col.Count())
	if n == 0 {
		return "", nil
	}

	results, err := col.Query(ctx, text, n, nil, nil)
	if err != nil {
		return "", fmt.Errorf("query collection: %w", err)
	}

	seen := make(map[string]bool)
	var hits []core.RecallHit
	for _, r := range results {
		id := r.Metadata["memory_id"]
		if seen[id] {
			continue
		}
		seen[id] = true

		at, _ := time.Parse(time.RFC3339, r.Metadata["extracted_at"])
		hits = append(hits, core.RecallHit{
			ID:          id,
			Type:        core.MemoryType(r.Metadata["memory_type"]),
			Summary:     r.Content,
			Similarity:  r.Similarity,
			ExtractedAt: at,
		})
		if len(hits) == s.Limit {
			break
		}
	}
	return core.FormatRecall(hits), nil
}
