package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const defaultRecallLimit = 8

// SemanticStore indexes candidate summaries in a pgvector table. Long
// summaries produce one row per embedded piece; recall reports each
// memory once.
type SemanticStore struct {
	pool     *pgxpool.Pool
	embedder core.Embedder
	dims     int

	Limit int

	schemaMu sync.Mutex
	ready    bool
}

var _ core.SemanticStore = (*SemanticStore)(nil)

func NewSemanticStore(pool *pgxpool.Pool, embedder core.Embedder, dims int) *SemanticStore {
	return &SemanticStore{pool: pool, embedder: embedder, dims: dims, Limit: defaultRecallLimit}
}

func (s *SemanticStore) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.ready {
		return nil
	}

	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS memory_vectors (
			id           TEXT PRIMARY KEY,
			memory_id    TEXT NOT NULL,
			user_id      TEXT NOT NULL,
			session_id   TEXT NOT NULL,
			memory_type  TEXT NOT NULL,
			summary      TEXT NOT NULL,
			extracted_at TIMESTAMPTZ NOT NULL,
			embedding    vector(%d) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_memory_vectors_user ON memory_vectors (user_id);`, s.dims)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	s.ready = true
	return nil
}

func (s *SemanticStore) BatchStoreMemories(ctx context.Context, userID, sessionID string, candidates []core.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
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
		for _, vec := range vectors {
			batch.Queue(`
				INSERT INTO memory_vectors (id, memory_id, user_id, session_id, memory_type, summary, extracted_at, embedding)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.NewString(), memoryID, userID, sessionID, string(c.Type), text, now, pgvector.NewVector(vec))
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert vectors: %w", err)
	}
	log.FromCtx(ctx).Debug().Str("user_id", userID).Int("rows", batch.Len()).Msg("indexed memories")
	return nil
}

func (s *SemanticStore) GetContextualMemories(ctx context.Context, userID, query string, relatedSymptoms []string) (string, error) {
	text := core.RecallQuery(query, relatedSymptoms)
	if text == "" {
		return "", nil
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return "", err
	}

	vec, err := s.embedder.EncodeQuery(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	// over-fetch: several rows may belong to one memory
	rows, err := s.pool.Query(ctx, `
		SELECT memory_id, memory_type, summary, extracted_at, 1 - (embedding <=> $2) AS similarity
		FROM memory_vectors
		WHERE user_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3`, userID, pgvector.NewVector(vec), s.Limit*3)
	if err != nil {
		return "", fmt.Errorf("search vectors: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var hits []core.RecallHit
	for rows.Next() {
		var (
			h       core.RecallHit
			memType string
			sim     float64
		)
		if err := rows.Scan(&h.ID, &memType, &h.Summary, &h.ExtractedAt, &sim); err != nil {
			return "", fmt.Errorf("scan vector row: %w", err)
		}
		if seen[h.ID] || len(hits) == s.Limit {
			continue
		}
		seen[h.ID] = true
		h.Type = core.MemoryType(memType)
		h.Similarity = float32(sim)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate vectors: %w", err)
	}
	return core.FormatRecall(hits), nil
}
